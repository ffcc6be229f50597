package categoryRepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"doemais/database"
	"doemais/database/query"
	"doemais/database/repository"
	"doemais/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CategoryRepository defines methods for donation category data access.
type CategoryRepository interface {
	// List returns every category ordered by name.
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	// GetByIDs returns the categories found among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]models.Category, error)
	Create(ctx context.Context, c *models.Category) error
}

// MongoCategoryRepo implements CategoryRepository using MongoDB.
type MongoCategoryRepo struct {
	coll *mongo.Collection
}

func NewMongoCategoryRepo(logger *zap.Logger) CategoryRepository {
	repo := &MongoCategoryRepo{coll: database.Collection("categories")}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("category indexes not created", zap.Error(err))
	}
	return repo
}

func (r *MongoCategoryRepo) ensureIndexes() error {
	ctx, cancel := repository.WithTimeout(context.Background(), repository.IndexTimeout)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoCategoryRepo) find(ctx context.Context, filter bson.M) ([]models.Category, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ListTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Category
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return out, nil
}

func (r *MongoCategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoCategoryRepo) GetByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, query.NewBuilder().WhereInStrings("id", ids).Build())
}

func (r *MongoCategoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	var c models.Category
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		return nil, repository.MongoError("failed to fetch category "+id, err)
	}
	return &c, nil
}

func (r *MongoCategoryRepo) Create(ctx context.Context, c *models.Category) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.ReadTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return repository.MongoError("failed to create category", err)
	}
	return nil
}

// MemoryCategoryRepo is an in-process CategoryRepository.
type MemoryCategoryRepo struct {
	mu    sync.RWMutex
	items map[string]models.Category
	// Calls counts GetByIDs invocations.
	Calls int
}

func NewMemoryCategoryRepo(seed ...models.Category) *MemoryCategoryRepo {
	r := &MemoryCategoryRepo{items: make(map[string]models.Category, len(seed))}
	for _, c := range seed {
		r.items[c.ID] = c
	}
	return r
}

func (r *MemoryCategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (r *MemoryCategoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", id, repository.ErrNotFound)
	}
	return &c, nil
}

func (r *MemoryCategoryRepo) GetByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	r.mu.Lock()
	r.Calls++
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Category
	for _, id := range ids {
		if c, ok := r.items[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryCategoryRepo) Create(ctx context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; ok {
		return fmt.Errorf("failed to create category: %w", repository.ErrDuplicate)
	}
	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("category name %q: %w", c.Name, repository.ErrDuplicate)
		}
	}
	r.items[c.ID] = *c
	return nil
}

// CallCount reports how many batched lookups were served.
func (r *MemoryCategoryRepo) CallCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Calls
}
