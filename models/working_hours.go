package models

import (
	"errors"
	"fmt"
	"time"
)

// WorkingHours is one day of an institution's weekly schedule. Day follows
// time.Weekday numbering (0 = Sunday).
type WorkingHours struct {
	Day       int    `bson:"dayOfWeek" json:"dayOfWeek" validate:"gte=0,lte=6"`
	OpenTime  string `bson:"openTime,omitempty" json:"openTime,omitempty"`
	CloseTime string `bson:"closeTime,omitempty" json:"closeTime,omitempty"`
	Closed    bool   `bson:"isClosed" json:"isClosed"`
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks that the entry is either closed or holds an ordered open/close pair.
func (w WorkingHours) Validate() error {
	if w.Day < 0 || w.Day > 6 {
		return fmt.Errorf("day %d out of range", w.Day)
	}
	if w.Closed {
		if w.OpenTime != "" || w.CloseTime != "" {
			return fmt.Errorf("day %d is closed but has opening times", w.Day)
		}
		return nil
	}
	open, err := ParseClock(w.OpenTime)
	if err != nil {
		return fmt.Errorf("day %d: %w", w.Day, err)
	}
	closing, err := ParseClock(w.CloseTime)
	if err != nil {
		return fmt.Errorf("day %d: %w", w.Day, err)
	}
	if open >= closing {
		return fmt.Errorf("day %d opens at %s but closes at %s", w.Day, w.OpenTime, w.CloseTime)
	}
	return nil
}

// ValidateWeek requires exactly one valid entry for each day of the week.
func ValidateWeek(week []WorkingHours) error {
	if len(week) != 7 {
		return errors.New("a weekly schedule needs exactly 7 entries")
	}
	var seen [7]bool
	for _, w := range week {
		if err := w.Validate(); err != nil {
			return err
		}
		if seen[w.Day] {
			return fmt.Errorf("day %d appears more than once", w.Day)
		}
		seen[w.Day] = true
	}
	return nil
}

// EntryFor returns the schedule entry of the given weekday.
func EntryFor(week []WorkingHours, day time.Weekday) (WorkingHours, bool) {
	for _, w := range week {
		if w.Day == int(day) {
			return w, true
		}
	}
	return WorkingHours{}, false
}
