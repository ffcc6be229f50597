package donationRepo

import (
	"context"
	"fmt"
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

// MongoDonationRepo implements DonationRepository using MongoDB.
type MongoDonationRepo struct {
	coll      *mongo.Collection
	schedules *mongo.Collection
}

func NewMongoDonationRepo(logger *zap.Logger) DonationRepository {
	repo := &MongoDonationRepo{
		coll:      database.Collection("donations"),
		schedules: database.Collection("schedules"),
	}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("donation indexes not created", zap.Error(err))
	}
	return repo
}

func (r *MongoDonationRepo) ensureIndexes() error {
	ctx, cancel := repository.WithTimeout(context.Background(), repository.IndexTimeout)
	defer cancel()

	donationIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "donorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "institutionId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, donationIdx); err != nil {
		return fmt.Errorf("failed to create donation indexes: %w", err)
	}
	scheduleIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "donationId", Value: 1}}},
	}
	if _, err := r.schedules.Indexes().CreateMany(ctx, scheduleIdx); err != nil {
		return fmt.Errorf("failed to create schedule indexes: %w", err)
	}
	return nil
}

func (r *MongoDonationRepo) Create(ctx context.Context, d *models.Donation) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return repository.MongoError("failed to create donation", err)
	}
	return nil
}

func (r *MongoDonationRepo) GetByID(ctx context.Context, id string) (*models.Donation, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	var d models.Donation
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		return nil, repository.MongoError("failed to fetch donation "+id, err)
	}
	return &d, nil
}

func (r *MongoDonationRepo) list(ctx context.Context, filter bson.M) ([]models.Donation, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ListTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve donations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Donation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode donations: %w", err)
	}
	return out, nil
}

func (r *MongoDonationRepo) ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error) {
	return r.list(ctx, query.NewBuilder().Where("donorId", donorID).Build())
}

func (r *MongoDonationRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Donation, error) {
	return r.list(ctx, query.NewBuilder().Where("institutionId", institutionID).Build())
}

func (r *MongoDonationRepo) Update(ctx context.Context, d *models.Donation) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	d.UpdatedAt = time.Now()
	result, err := r.coll.ReplaceOne(ctx, bson.M{"id": d.ID}, d)
	if err != nil {
		return repository.MongoError("failed to update donation "+d.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("donation with id %s: %w", d.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *MongoDonationRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return repository.MongoError("failed to delete donation "+id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("donation with id %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *MongoDonationRepo) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if _, err := r.schedules.InsertOne(ctx, s); err != nil {
		return repository.MongoError("failed to create schedule", err)
	}
	return nil
}

func (r *MongoDonationRepo) SchedulesByDonation(ctx context.Context, donationID string) ([]models.Schedule, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ListTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.schedules.Find(ctx, bson.M{"donationId": donationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Schedule
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schedules: %w", err)
	}
	return out, nil
}
