package institution

import (
	"sort"
	"strings"
	"time"

	"doemais/models"
	"doemais/services/geo"
)

// OpenChecker decides whether an institution counts as open.
type OpenChecker interface {
	IsOpen(hours []models.WorkingHours) bool
}

const (
	ModeWallClock = "wall_clock"
	ModeSampleDay = "sample_day"
)

// OpenNow evaluates working hours either against the current time in
// Location (wall_clock) or against a fixed weekday (sample_day), where any
// non-closed entry counts as open.
type OpenNow struct {
	Mode      string
	SampleDay time.Weekday
	Location  *time.Location
	Now       func() time.Time
}

func (o OpenNow) now() time.Time {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	if o.Location != nil {
		return now().In(o.Location)
	}
	return now()
}

func (o OpenNow) IsOpen(hours []models.WorkingHours) bool {
	if o.Mode == ModeSampleDay {
		entry, ok := models.EntryFor(hours, o.SampleDay)
		return ok && !entry.Closed
	}

	t := o.now()
	entry, ok := models.EntryFor(hours, t.Weekday())
	if !ok || entry.Closed {
		return false
	}
	open, err := models.ParseClock(entry.OpenTime)
	if err != nil {
		return false
	}
	closing, err := models.ParseClock(entry.CloseTime)
	if err != nil {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return open <= minute && minute < closing
}

type predicate func(inst models.Institution) bool

func matchesSearch(term string) predicate {
	return func(inst models.Institution) bool {
		return strings.Contains(strings.ToLower(inst.Name), term) ||
			strings.Contains(strings.ToLower(inst.Address.City), term) ||
			strings.Contains(strings.ToLower(inst.Address.Neighborhood), term)
	}
}

func acceptsAny(categories []string) predicate {
	return func(inst models.Institution) bool {
		for _, id := range categories {
			if inst.Accepts(id) {
				return true
			}
		}
		return false
	}
}

func hasType(types []models.InstitutionType) predicate {
	return func(inst models.Institution) bool {
		for _, t := range types {
			if inst.Type == t {
				return true
			}
		}
		return false
	}
}

func ratedAtLeast(min float64) predicate {
	return func(inst models.Institution) bool { return inst.Rating >= min }
}

func openNow(checker OpenChecker) predicate {
	return func(inst models.Institution) bool { return checker.IsOpen(inst.WorkingHours) }
}

func within(origin models.Coordinate, km float64) predicate {
	return func(inst models.Institution) bool {
		if inst.Coordinates == nil {
			return false
		}
		return geo.Distance(origin, *inst.Coordinates) <= km
	}
}

// predicates lists the active criteria in evaluation order.
func predicates(criteria models.FilterCriteria, origin *models.Coordinate, checker OpenChecker) []predicate {
	var out []predicate
	if term := criteria.SearchTerm(); term != "" {
		out = append(out, matchesSearch(term))
	}
	if len(criteria.Categories) > 0 {
		out = append(out, acceptsAny(criteria.Categories))
	}
	if len(criteria.Types) > 0 {
		out = append(out, hasType(criteria.Types))
	}
	if criteria.MinRating > 0 {
		out = append(out, ratedAtLeast(criteria.MinRating))
	}
	if criteria.OpenNow {
		if checker == nil {
			checker = OpenNow{}
		}
		out = append(out, openNow(checker))
	}
	if origin != nil && criteria.MaxDistanceKm > 0 {
		out = append(out, within(*origin, criteria.MaxDistanceKm))
	}
	return out
}

// Filter returns the institutions that satisfy every active criterion, in
// their input order. It never modifies items.
func Filter(items []models.Institution, criteria models.FilterCriteria, origin *models.Coordinate, checker OpenChecker) []models.Institution {
	preds := predicates(criteria, origin, checker)
	out := make([]models.Institution, 0, len(items))
next:
	for _, inst := range items {
		for _, keep := range preds {
			if !keep(inst) {
				continue next
			}
		}
		out = append(out, inst)
	}
	return out
}

// Sort orders items in place by key. SortNone keeps the current order.
func Sort(items []models.Institution, key models.SortKey, origin *models.Coordinate) {
	switch key {
	case models.SortRating:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Rating > items[j].Rating })
	case models.SortName:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
	case models.SortDistance:
		if origin == nil {
			return
		}
		dist := func(inst models.Institution) (float64, bool) {
			if inst.Coordinates == nil {
				return 0, false
			}
			return geo.Distance(*origin, *inst.Coordinates), true
		}
		sort.SliceStable(items, func(i, j int) bool {
			di, okI := dist(items[i])
			dj, okJ := dist(items[j])
			switch {
			case okI && okJ:
				return di < dj
			case okI:
				return true
			}
			return false
		})
	}
}
