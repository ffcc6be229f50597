package models

import "time"

// SessionSnapshot is a read-only view of a client session.
type SessionSnapshot struct {
	ID                  string         `json:"id"`
	Authenticated       bool           `json:"authenticated"`
	AuthLoading         bool           `json:"authLoading"`
	User                *User          `json:"user,omitempty"`
	Location            LocationState  `json:"location"`
	MapCenter           Coordinate     `json:"mapCenter"`
	SelectedInstitution *Institution   `json:"selectedInstitution,omitempty"`
	Filters             FilterCriteria `json:"filters"`
	ResultCount         int            `json:"resultCount"`
	LastActivity        time.Time      `json:"lastActivity"`
}
