package donationRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"doemais/database/repository"
	"doemais/models"
)

// MemoryDonationRepo is an in-process DonationRepository.
type MemoryDonationRepo struct {
	mu        sync.RWMutex
	donations map[string]models.Donation
	schedules []models.Schedule
}

func NewMemoryDonationRepo(seed ...models.Donation) *MemoryDonationRepo {
	r := &MemoryDonationRepo{donations: make(map[string]models.Donation, len(seed))}
	for _, d := range seed {
		r.donations[d.ID] = cloneDonation(d)
	}
	return r
}

func cloneDonation(d models.Donation) models.Donation {
	d.Images = append([]string(nil), d.Images...)
	return d
}

func (r *MemoryDonationRepo) Create(ctx context.Context, d *models.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.donations[d.ID]; ok {
		return fmt.Errorf("failed to create donation: %w", repository.ErrDuplicate)
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	r.donations[d.ID] = cloneDonation(*d)
	return nil
}

func (r *MemoryDonationRepo) GetByID(ctx context.Context, id string) (*models.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.donations[id]
	if !ok {
		return nil, fmt.Errorf("donation %s: %w", id, repository.ErrNotFound)
	}
	d = cloneDonation(d)
	return &d, nil
}

func (r *MemoryDonationRepo) listWhere(keep func(models.Donation) bool) []models.Donation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Donation
	for _, d := range r.donations {
		if keep(d) {
			out = append(out, cloneDonation(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryDonationRepo) ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error) {
	return r.listWhere(func(d models.Donation) bool { return d.DonorID == donorID }), nil
}

func (r *MemoryDonationRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Donation, error) {
	return r.listWhere(func(d models.Donation) bool { return d.InstitutionID == institutionID }), nil
}

func (r *MemoryDonationRepo) Update(ctx context.Context, d *models.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.donations[d.ID]; !ok {
		return fmt.Errorf("donation %s: %w", d.ID, repository.ErrNotFound)
	}
	d.UpdatedAt = time.Now()
	r.donations[d.ID] = cloneDonation(*d)
	return nil
}

func (r *MemoryDonationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.donations[id]; !ok {
		return fmt.Errorf("donation %s: %w", id, repository.ErrNotFound)
	}
	delete(r.donations, id)
	return nil
}

func (r *MemoryDonationRepo) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	r.schedules = append(r.schedules, *s)
	return nil
}

func (r *MemoryDonationRepo) SchedulesByDonation(ctx context.Context, donationID string) ([]models.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Schedule
	for i := len(r.schedules) - 1; i >= 0; i-- {
		if r.schedules[i].DonationID == donationID {
			out = append(out, r.schedules[i])
		}
	}
	return out, nil
}
