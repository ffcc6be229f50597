package institutionRepo

import (
	"math"
	"sort"
	"time"

	"doemais/models"
)

// The records below mirror how institutions are stored: the address is a
// joined sub-document, categories and hours are child rows. Nothing outside
// this package sees them.

type addressRecord struct {
	Street       string   `bson:"street"`
	Number       string   `bson:"number"`
	Complement   string   `bson:"complement,omitempty"`
	Neighborhood string   `bson:"neighborhood"`
	City         string   `bson:"city"`
	State        string   `bson:"state"`
	ZipCode      string   `bson:"zip_code"`
	Latitude     *float64 `bson:"latitude,omitempty"`
	Longitude    *float64 `bson:"longitude,omitempty"`
}

type workingHoursRecord struct {
	DayOfWeek int    `bson:"day_of_week"`
	OpenTime  string `bson:"open_time,omitempty"`
	CloseTime string `bson:"close_time,omitempty"`
	IsClosed  bool   `bson:"is_closed"`
}

type categoryLinkRecord struct {
	CategoryID string `bson:"category_id"`
}

type institutionRecord struct {
	ID                 string               `bson:"id"`
	UserID             string               `bson:"user_id"`
	Name               string               `bson:"name"`
	Description        string               `bson:"description"`
	Email              string               `bson:"email"`
	Phone              string               `bson:"phone"`
	CNPJ               string               `bson:"cnpj"`
	InstitutionType    string               `bson:"institution_type"`
	AvatarURL          string               `bson:"avatar_url,omitempty"`
	Address            *addressRecord       `bson:"addresses,omitempty"`
	Location           *models.GeoPoint     `bson:"location,omitempty"`
	AverageRating      float64              `bson:"average_rating"`
	TotalRatings       int                  `bson:"total_ratings"`
	AcceptedCategories []categoryLinkRecord `bson:"institution_categories"`
	WorkingHours       []workingHoursRecord `bson:"working_hours"`
	CreatedAt          time.Time            `bson:"created_at"`
	UpdatedAt          time.Time            `bson:"updated_at"`
}

func clampRating(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return math.Round(r*10) / 10
}

// toModel normalizes a stored record into the domain type.
func (r institutionRecord) toModel() models.Institution {
	inst := models.Institution{
		ID:           r.ID,
		UserID:       r.UserID,
		Name:         r.Name,
		Description:  r.Description,
		Email:        r.Email,
		Phone:        r.Phone,
		CNPJ:         r.CNPJ,
		Type:         models.InstitutionType(r.InstitutionType),
		Avatar:       r.AvatarURL,
		Rating:       clampRating(r.AverageRating),
		TotalRatings: r.TotalRatings,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if !inst.Type.Valid() {
		inst.Type = models.InstitutionOther
	}
	if inst.TotalRatings < 0 {
		inst.TotalRatings = 0
	}

	if a := r.Address; a != nil {
		inst.Address = models.Address{
			Street:       a.Street,
			Number:       a.Number,
			Complement:   a.Complement,
			Neighborhood: a.Neighborhood,
			City:         a.City,
			State:        a.State,
			ZipCode:      a.ZipCode,
		}
		if a.Latitude != nil && a.Longitude != nil {
			c := models.Coordinate{Lat: *a.Latitude, Lng: *a.Longitude}
			if c.Valid() {
				inst.Coordinates = &c
			}
		}
	}
	if inst.Coordinates == nil && r.Location != nil {
		if c, ok := r.Location.Coordinate(); ok && c.Valid() {
			inst.Coordinates = &c
		}
	}
	if inst.Coordinates != nil {
		c := *inst.Coordinates
		inst.Address.Coordinates = &c
	}

	ids := make([]string, 0, len(r.AcceptedCategories))
	for _, link := range r.AcceptedCategories {
		ids = append(ids, link.CategoryID)
	}
	inst.AcceptedCategories = models.DedupeIDs(ids)

	inst.WorkingHours = make([]models.WorkingHours, 0, len(r.WorkingHours))
	for _, wh := range r.WorkingHours {
		inst.WorkingHours = append(inst.WorkingHours, models.WorkingHours{
			Day:       wh.DayOfWeek,
			OpenTime:  wh.OpenTime,
			CloseTime: wh.CloseTime,
			Closed:    wh.IsClosed,
		})
	}
	sort.SliceStable(inst.WorkingHours, func(i, j int) bool {
		return inst.WorkingHours[i].Day < inst.WorkingHours[j].Day
	})
	return inst
}

// fromModel builds the stored form of an institution.
func fromModel(inst models.Institution) institutionRecord {
	rec := institutionRecord{
		ID:              inst.ID,
		UserID:          inst.UserID,
		Name:            inst.Name,
		Description:     inst.Description,
		Email:           inst.Email,
		Phone:           inst.Phone,
		CNPJ:            inst.CNPJ,
		InstitutionType: string(inst.Type),
		AvatarURL:       inst.Avatar,
		AverageRating:   inst.Rating,
		TotalRatings:    inst.TotalRatings,
		Address: &addressRecord{
			Street:       inst.Address.Street,
			Number:       inst.Address.Number,
			Complement:   inst.Address.Complement,
			Neighborhood: inst.Address.Neighborhood,
			City:         inst.Address.City,
			State:        inst.Address.State,
			ZipCode:      inst.Address.ZipCode,
		},
		AcceptedCategories: categoryLinks(inst.AcceptedCategories),
		WorkingHours:       hoursRecords(inst.WorkingHours),
		CreatedAt:          inst.CreatedAt,
		UpdatedAt:          inst.UpdatedAt,
	}
	coords := inst.Coordinates
	if coords == nil {
		coords = inst.Address.Coordinates
	}
	if coords != nil {
		lat, lng := coords.Lat, coords.Lng
		rec.Address.Latitude = &lat
		rec.Address.Longitude = &lng
		p := models.NewGeoPoint(*coords)
		rec.Location = &p
	}
	return rec
}

func categoryLinks(ids []string) []categoryLinkRecord {
	ids = models.DedupeIDs(ids)
	links := make([]categoryLinkRecord, 0, len(ids))
	for _, id := range ids {
		links = append(links, categoryLinkRecord{CategoryID: id})
	}
	return links
}

func hoursRecords(hours []models.WorkingHours) []workingHoursRecord {
	out := make([]workingHoursRecord, 0, len(hours))
	for _, wh := range hours {
		out = append(out, workingHoursRecord{
			DayOfWeek: wh.Day,
			OpenTime:  wh.OpenTime,
			CloseTime: wh.CloseTime,
			IsClosed:  wh.Closed,
		})
	}
	return out
}

// matches applies the pushed-down predicates to a record.
func (q Query) matches(r institutionRecord) bool {
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if string(t) == r.InstitutionType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.MinRating > 0 && r.AverageRating < q.MinRating {
		return false
	}
	return true
}
