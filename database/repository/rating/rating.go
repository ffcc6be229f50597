package ratingRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"doemais/database"
	"doemais/database/query"
	"doemais/database/repository"
	"doemais/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// RatingRepository defines methods for rating data access.
type RatingRepository interface {
	// Create fails with repository.ErrDuplicate if the donor already rated the donation.
	Create(ctx context.Context, r *models.Rating) error
	GetByID(ctx context.Context, id string) (*models.Rating, error)
	// GetByDonation returns the donor's rating of a donation, or ErrNotFound.
	GetByDonation(ctx context.Context, donorID, donationID string) (*models.Rating, error)
	// ListByInstitution returns an institution's ratings, newest first.
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Rating, error)
	SetResponse(ctx context.Context, id, response string, at time.Time) error
}

// MongoRatingRepo implements RatingRepository using MongoDB.
type MongoRatingRepo struct {
	coll *mongo.Collection
}

func NewMongoRatingRepo(logger *zap.Logger) RatingRepository {
	repo := &MongoRatingRepo{coll: database.Collection("ratings")}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("rating indexes not created", zap.Error(err))
	}
	return repo
}

func (r *MongoRatingRepo) ensureIndexes() error {
	ctx, cancel := repository.WithTimeout(context.Background(), repository.IndexTimeout)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "donorId", Value: 1}, {Key: "donationId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "institutionId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoRatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}
	if _, err := r.coll.InsertOne(ctx, rating); err != nil {
		return repository.MongoError("failed to create rating", err)
	}
	return nil
}

func (r *MongoRatingRepo) findOne(ctx context.Context, filter bson.M) (*models.Rating, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	var out models.Rating
	if err := r.coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, repository.MongoError("failed to fetch rating", err)
	}
	return &out, nil
}

func (r *MongoRatingRepo) GetByID(ctx context.Context, id string) (*models.Rating, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoRatingRepo) GetByDonation(ctx context.Context, donorID, donationID string) (*models.Rating, error) {
	return r.findOne(ctx, query.NewBuilder().Where("donorId", donorID).Where("donationId", donationID).Build())
}

func (r *MongoRatingRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Rating, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ListTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"institutionId": institutionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Rating
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	return out, nil
}

func (r *MongoRatingRepo) SetResponse(ctx context.Context, id, response string, at time.Time) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"response": response, "respondedAt": at}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return repository.MongoError("failed to respond to rating "+id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("rating %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// MemoryRatingRepo is an in-process RatingRepository.
type MemoryRatingRepo struct {
	mu    sync.RWMutex
	items []models.Rating
}

func NewMemoryRatingRepo(seed ...models.Rating) *MemoryRatingRepo {
	return &MemoryRatingRepo{items: append([]models.Rating(nil), seed...)}
}

func (r *MemoryRatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ID == rating.ID || (existing.DonorID == rating.DonorID && existing.DonationID == rating.DonationID) {
			return fmt.Errorf("failed to create rating: %w", repository.ErrDuplicate)
		}
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}
	r.items = append(r.items, *rating)
	return nil
}

func (r *MemoryRatingRepo) find(keep func(models.Rating) bool) (*models.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if keep(item) {
			out := item
			return &out, nil
		}
	}
	return nil, fmt.Errorf("rating: %w", repository.ErrNotFound)
}

func (r *MemoryRatingRepo) GetByID(ctx context.Context, id string) (*models.Rating, error) {
	return r.find(func(x models.Rating) bool { return x.ID == id })
}

func (r *MemoryRatingRepo) GetByDonation(ctx context.Context, donorID, donationID string) (*models.Rating, error) {
	return r.find(func(x models.Rating) bool { return x.DonorID == donorID && x.DonationID == donationID })
}

func (r *MemoryRatingRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Rating
	for _, item := range r.items {
		if item.InstitutionID == institutionID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRatingRepo) SetResponse(ctx context.Context, id, response string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Response = response
			r.items[i].RespondedAt = &at
			return nil
		}
	}
	return fmt.Errorf("rating %s: %w", id, repository.ErrNotFound)
}
