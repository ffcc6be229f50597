package institutionRepo

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

// MongoInstitutionRepo implements InstitutionRepository using MongoDB.
type MongoInstitutionRepo struct {
	coll *mongo.Collection
}

// NewMongoInstitutionRepo creates a new instance of InstitutionRepository using MongoDB.
func NewMongoInstitutionRepo(logger *zap.Logger) InstitutionRepository {
	repo := &MongoInstitutionRepo{coll: database.Collection("institutions")}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("institution indexes not created", zap.Error(err))
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoInstitutionRepo) ensureIndexes() error {
	ctx, cancel := repository.WithTimeout(context.Background(), repository.IndexTimeout)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "cnpj", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "institution_type", Value: 1}, {Key: "average_rating", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Find runs the pushed-down predicates. Results come back oldest first.
func (r *MongoInstitutionRepo) Find(ctx context.Context, q Query) ([]models.Institution, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ListTimeout)
	defer cancel()

	types := make([]string, len(q.Types))
	for i, t := range q.Types {
		types[i] = string(t)
	}
	b := query.NewBuilder().WhereInStrings("institution_type", types)
	if q.MinRating > 0 {
		b.WhereGTE("average_rating", q.MinRating)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := r.coll.Find(ctx, b.Build(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve institutions: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Institution
	for cursor.Next(ctx) {
		var rec institutionRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode institution: %w", err)
		}
		out = append(out, rec.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("institution cursor failed: %w", err)
	}
	return out, nil
}

func (r *MongoInstitutionRepo) findOne(ctx context.Context, filter bson.M, what string) (*models.Institution, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	var rec institutionRecord
	if err := r.coll.FindOne(ctx, filter).Decode(&rec); err != nil {
		return nil, repository.MongoError("failed to fetch institution "+what, err)
	}
	inst := rec.toModel()
	return &inst, nil
}

// GetByID retrieves an institution by its unique ID.
func (r *MongoInstitutionRepo) GetByID(ctx context.Context, id string) (*models.Institution, error) {
	return r.findOne(ctx, query.NewBuilder().Where("id", id).Build(), "with id "+id)
}

// GetByUserID retrieves the institution owned by a user.
func (r *MongoInstitutionRepo) GetByUserID(ctx context.Context, userID string) (*models.Institution, error) {
	return r.findOne(ctx, query.NewBuilder().Where("user_id", userID).Build(), "for user "+userID)
}

// Create inserts a new institution document.
func (r *MongoInstitutionRepo) Create(ctx context.Context, inst *models.Institution) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	now := time.Now()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, fromModel(*inst)); err != nil {
		return repository.MongoError("failed to create institution", err)
	}
	return nil
}

func (r *MongoInstitutionRepo) updateFields(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	set["updated_at"] = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return repository.MongoError("failed to update institution "+id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("institution with id %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// profileUpdate builds the single update document for the profile fields.
// A missing location is unset in the same write.
func profileUpdate(inst models.Institution, now time.Time) bson.M {
	rec := fromModel(inst)
	set := bson.M{
		"name":             rec.Name,
		"description":      rec.Description,
		"email":            rec.Email,
		"phone":            rec.Phone,
		"institution_type": rec.InstitutionType,
		"avatar_url":       rec.AvatarURL,
		"addresses":        rec.Address,
		"updated_at":       now,
	}
	update := bson.M{"$set": set}
	if rec.Location != nil {
		set["location"] = rec.Location
	} else {
		update["$unset"] = bson.M{"location": ""}
	}
	return update
}

// Update modifies the profile fields of an institution in one write.
func (r *MongoInstitutionRepo) Update(ctx context.Context, inst *models.Institution) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": inst.ID}, profileUpdate(*inst, time.Now()))
	if err != nil {
		return repository.MongoError("failed to update institution "+inst.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("institution with id %s: %w", inst.ID, repository.ErrNotFound)
	}
	return nil
}

// Delete removes an institution document by its ID.
func (r *MongoInstitutionRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return repository.MongoError("failed to delete institution "+id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("institution with id %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *MongoInstitutionRepo) ReplaceWorkingHours(ctx context.Context, id string, hours []models.WorkingHours) error {
	return r.updateFields(ctx, id, bson.M{"working_hours": hoursRecords(hours)})
}

func (r *MongoInstitutionRepo) ReplaceAcceptedCategories(ctx context.Context, id string, categoryIDs []string) error {
	return r.updateFields(ctx, id, bson.M{"institution_categories": categoryLinks(categoryIDs)})
}

// AddRating folds one score into the stored aggregate in a single write.
// Both fields in the stage read the pre-update values.
func (r *MongoInstitutionRepo) AddRating(ctx context.Context, id string, score int) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	total := bson.M{"$ifNull": bson.A{"$total_ratings", 0}}
	average := bson.M{"$ifNull": bson.A{"$average_rating", 0}}
	stage := bson.D{{Key: "$set", Value: bson.M{
		"average_rating": bson.M{"$round": bson.A{
			bson.M{"$divide": bson.A{
				bson.M{"$add": bson.A{bson.M{"$multiply": bson.A{average, total}}, score}},
				bson.M{"$add": bson.A{total, 1}},
			}},
			1,
		}},
		"total_ratings": bson.M{"$add": bson.A{total, 1}},
		"updated_at":    time.Now(),
	}}}

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, mongo.Pipeline{stage})
	if err != nil {
		return repository.MongoError("failed to add rating to institution "+id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("institution with id %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
