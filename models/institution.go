package models

import "time"

// InstitutionType is the kind of charitable organization.
type InstitutionType string

const (
	InstitutionNGO             InstitutionType = "ong"
	InstitutionChurch          InstitutionType = "church"
	InstitutionSocialProject   InstitutionType = "social_project"
	InstitutionHospital        InstitutionType = "hospital"
	InstitutionSchool          InstitutionType = "school"
	InstitutionCharity         InstitutionType = "charity"
	InstitutionCommunityCenter InstitutionType = "community_center"
	InstitutionOther           InstitutionType = "other"
)

// InstitutionTypes lists every accepted institution type.
var InstitutionTypes = []InstitutionType{
	InstitutionNGO, InstitutionChurch, InstitutionSocialProject, InstitutionHospital,
	InstitutionSchool, InstitutionCharity, InstitutionCommunityCenter, InstitutionOther,
}

func (t InstitutionType) Valid() bool {
	for _, known := range InstitutionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Address is a postal address with an optional geocoded position.
type Address struct {
	Street       string      `bson:"street" json:"street"`
	Number       string      `bson:"number" json:"number"`
	Complement   string      `bson:"complement,omitempty" json:"complement,omitempty"`
	Neighborhood string      `bson:"neighborhood" json:"neighborhood"`
	City         string      `bson:"city" json:"city"`
	State        string      `bson:"state" json:"state"`
	ZipCode      string      `bson:"zipCode" json:"zipCode"`
	Coordinates  *Coordinate `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Institution is a charitable organization registered to receive donations.
type Institution struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	CNPJ               string          `json:"cnpj"`
	Type               InstitutionType `json:"type"`
	Avatar             string          `json:"avatar,omitempty"`
	Address            Address         `json:"address"`
	Coordinates        *Coordinate     `json:"coordinates"`
	Rating             float64         `json:"rating"`
	TotalRatings       int             `json:"totalRatings"`
	AcceptedCategories []string        `json:"acceptedCategories"`
	WorkingHours       []WorkingHours  `json:"workingHours"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Mappable reports whether the institution can be placed on a map.
func (i Institution) Mappable() bool {
	return i.Coordinates != nil
}

// Accepts reports whether categoryID is among the accepted categories.
func (i Institution) Accepts(categoryID string) bool {
	for _, id := range i.AcceptedCategories {
		if id == categoryID {
			return true
		}
	}
	return false
}

// DedupeIDs returns ids without repeats, keeping first occurrences in order.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
