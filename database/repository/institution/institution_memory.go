package institutionRepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"doemais/database/repository"
	"doemais/models"
)

// MemoryInstitutionRepo keeps institutions in insertion order. It backs the
// fixture data source and tests.
type MemoryInstitutionRepo struct {
	mu      sync.RWMutex
	records []institutionRecord
	// FailWith, when set, is returned by Find. Tests use it to simulate outages.
	FailWith error
}

func NewMemoryInstitutionRepo(seed ...models.Institution) *MemoryInstitutionRepo {
	r := &MemoryInstitutionRepo{}
	for _, inst := range seed {
		r.records = append(r.records, fromModel(inst))
	}
	return r
}

func (r *MemoryInstitutionRepo) indexOf(id string) int {
	for i, rec := range r.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryInstitutionRepo) Find(ctx context.Context, q Query) ([]models.Institution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}

	out := make([]models.Institution, 0, len(r.records))
	for _, rec := range r.records {
		if q.matches(rec) {
			out = append(out, rec.toModel())
		}
	}
	return out, nil
}

func (r *MemoryInstitutionRepo) GetByID(ctx context.Context, id string) (*models.Institution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("institution with id %s: %w", id, repository.ErrNotFound)
	}
	inst := r.records[i].toModel()
	return &inst, nil
}

func (r *MemoryInstitutionRepo) GetByUserID(ctx context.Context, userID string) (*models.Institution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.UserID == userID {
			inst := rec.toModel()
			return &inst, nil
		}
	}
	return nil, fmt.Errorf("institution for user %s: %w", userID, repository.ErrNotFound)
}

func (r *MemoryInstitutionRepo) Create(ctx context.Context, inst *models.Institution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == inst.ID || (inst.UserID != "" && rec.UserID == inst.UserID) || (inst.CNPJ != "" && rec.CNPJ == inst.CNPJ) {
			return fmt.Errorf("failed to create institution: %w", repository.ErrDuplicate)
		}
	}
	now := time.Now()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now
	r.records = append(r.records, fromModel(*inst))
	return nil
}

func (r *MemoryInstitutionRepo) mutate(id string, fn func(rec *institutionRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("institution with id %s: %w", id, repository.ErrNotFound)
	}
	fn(&r.records[i])
	r.records[i].UpdatedAt = time.Now()
	return nil
}

func (r *MemoryInstitutionRepo) Update(ctx context.Context, inst *models.Institution) error {
	next := fromModel(*inst)
	return r.mutate(inst.ID, func(rec *institutionRecord) {
		rec.Name = next.Name
		rec.Description = next.Description
		rec.Email = next.Email
		rec.Phone = next.Phone
		rec.InstitutionType = next.InstitutionType
		rec.AvatarURL = next.AvatarURL
		rec.Address = next.Address
		rec.Location = next.Location
	})
}

func (r *MemoryInstitutionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("institution with id %s: %w", id, repository.ErrNotFound)
	}
	r.records = append(r.records[:i], r.records[i+1:]...)
	return nil
}

func (r *MemoryInstitutionRepo) ReplaceWorkingHours(ctx context.Context, id string, hours []models.WorkingHours) error {
	return r.mutate(id, func(rec *institutionRecord) { rec.WorkingHours = hoursRecords(hours) })
}

func (r *MemoryInstitutionRepo) ReplaceAcceptedCategories(ctx context.Context, id string, categoryIDs []string) error {
	return r.mutate(id, func(rec *institutionRecord) { rec.AcceptedCategories = categoryLinks(categoryIDs) })
}

func (r *MemoryInstitutionRepo) AddRating(ctx context.Context, id string, score int) error {
	return r.mutate(id, func(rec *institutionRecord) {
		rec.AverageRating = models.NextAverage(rec.AverageRating, rec.TotalRatings, score)
		rec.TotalRatings++
	})
}
