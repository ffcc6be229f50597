package models

import "strings"

// SortKey orders search results. The zero value keeps source order.
type SortKey string

const (
	SortNone     SortKey = ""
	SortRating   SortKey = "rating"
	SortDistance SortKey = "distance"
	SortName     SortKey = "name"
)

// DefaultMaxDistanceKm is the radius applied before the user changes it.
const DefaultMaxDistanceKm = 50

// FilterCriteria is the transient set of institution search parameters.
type FilterCriteria struct {
	Search        string            `json:"search" validate:"max=200"`
	Categories    []string          `json:"categories" validate:"dive,required"`
	Types         []InstitutionType `json:"institutionTypes" validate:"dive,oneof=ong church social_project hospital school charity community_center other"`
	MinRating     float64           `json:"minRating" validate:"gte=0,lte=5"`
	MaxDistanceKm float64           `json:"maxDistance" validate:"gte=0"`
	OpenNow       bool              `json:"openNow"`
	SortBy        SortKey           `json:"sortBy,omitempty" validate:"omitempty,oneof=rating distance name"`
}

// DefaultFilterCriteria returns the criteria a fresh session starts with.
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{
		Categories:    []string{},
		Types:         []InstitutionType{},
		MinRating:     0,
		MaxDistanceKm: DefaultMaxDistanceKm,
		OpenNow:       false,
	}
}

// SearchTerm is the normalized free-text term.
func (f FilterCriteria) SearchTerm() string {
	return strings.ToLower(strings.TrimSpace(f.Search))
}
