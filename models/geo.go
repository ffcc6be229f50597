package models

import "time"

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Valid reports whether the coordinate lies within [-90,90]x[-180,180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// GeoPoint represents a GeoJSON Point.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`               // Always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

// NewGeoPoint builds the GeoJSON form of c.
func NewGeoPoint(c Coordinate) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{c.Lng, c.Lat}}
}

// Coordinate converts the point back, reporting false when it is malformed.
func (p GeoPoint) Coordinate() (Coordinate, bool) {
	if p.Type != "Point" || len(p.Coordinates) != 2 {
		return Coordinate{}, false
	}
	return Coordinate{Lat: p.Coordinates[1], Lng: p.Coordinates[0]}, true
}

// LocationState is the observable state of a geolocation request. Exactly one
// of Coordinates and Error is set once Loading is false.
type LocationState struct {
	Coordinates *Coordinate `json:"coordinates"`
	Error       string      `json:"error,omitempty"`
	Loading     bool        `json:"loading"`
	ResolvedAt  *time.Time  `json:"resolvedAt,omitempty"`
}
