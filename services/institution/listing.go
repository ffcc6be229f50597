package institution

import (
	"context"
	"fmt"
	"time"

	categoryRepo "doemais/database/repository/category"
	"doemais/models"
	"doemais/services/geo"

	"github.com/graph-gophers/dataloader"
)

// CategoryRef names an accepted category.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Listing is the flattened, map-ready view of an institution.
type Listing struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Type         models.InstitutionType `json:"type"`
	Avatar       string                 `json:"avatar,omitempty"`
	Phone        string                 `json:"phone"`
	Email        string                 `json:"email"`
	City         string                 `json:"city"`
	Neighborhood string                 `json:"neighborhood"`
	Latitude     *float64               `json:"latitude"`
	Longitude    *float64               `json:"longitude"`
	// Mappable is false when the institution has no coordinates.
	Mappable     bool          `json:"mappable"`
	Rating       float64       `json:"rating"`
	TotalRatings int           `json:"totalRatings"`
	Categories   []CategoryRef `json:"categories"`
	DistanceKm   *float64      `json:"distanceKm,omitempty"`
	OpenNow      bool          `json:"openNow"`
	Geohash      string        `json:"geohash,omitempty"`
}

// newCategoryLoader batches category lookups for one search.
func newCategoryLoader(repo categoryRepo.CategoryRepository) *dataloader.Loader {
	return dataloader.NewBatchedLoader(func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]string, len(keys))
		for i, key := range keys {
			ids[i] = key.String()
		}

		results := make([]*dataloader.Result, len(keys))
		found, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[string]models.Category, len(found))
		for _, c := range found {
			byID[c.ID] = c
		}
		for i, id := range ids {
			if c, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: c}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("category not found: %s", id)}
			}
		}
		return results
	}, dataloader.WithWait(2*time.Millisecond))
}

// categoryRefs queues a lookup of ids and returns a thunk yielding their
// names. Queue every institution before resolving so that one batch serves
// the whole page. Unknown ids keep an empty name.
func categoryRefs(ctx context.Context, loader *dataloader.Loader, ids []string) func() []CategoryRef {
	if loader == nil {
		return func() []CategoryRef {
			refs := make([]CategoryRef, 0, len(ids))
			for _, id := range ids {
				refs = append(refs, CategoryRef{ID: id})
			}
			return refs
		}
	}

	thunk := loader.LoadMany(ctx, dataloader.NewKeysFromStrings(ids))
	return func() []CategoryRef {
		values, _ := thunk()
		refs := make([]CategoryRef, 0, len(ids))
		for i, id := range ids {
			ref := CategoryRef{ID: id}
			if i < len(values) {
				if c, ok := values[i].(models.Category); ok {
					ref.Name = c.Name
				}
			}
			refs = append(refs, ref)
		}
		return refs
	}
}

// toListing flattens inst. origin may be nil.
func toListing(inst models.Institution, origin *models.Coordinate, open bool, cats []CategoryRef) Listing {
	l := Listing{
		ID:           inst.ID,
		Name:         inst.Name,
		Description:  inst.Description,
		Type:         inst.Type,
		Avatar:       inst.Avatar,
		Phone:        inst.Phone,
		Email:        inst.Email,
		City:         inst.Address.City,
		Neighborhood: inst.Address.Neighborhood,
		Mappable:     inst.Mappable(),
		Rating:       inst.Rating,
		TotalRatings: inst.TotalRatings,
		Categories:   cats,
		OpenNow:      open,
	}
	if inst.Coordinates != nil {
		lat, lng := inst.Coordinates.Lat, inst.Coordinates.Lng
		l.Latitude, l.Longitude = &lat, &lng
		l.Geohash = geo.Geohash(*inst.Coordinates)
		if origin != nil {
			d := geo.Distance(*origin, *inst.Coordinates)
			l.DistanceKm = &d
		}
	}
	return l
}
