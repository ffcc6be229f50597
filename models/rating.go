package models

import (
	"math"
	"time"
)

// Rating is a donor's review of an institution after a delivered donation.
type Rating struct {
	ID            string     `bson:"id" json:"id"`
	DonorID       string     `bson:"donorId" json:"donorId"`
	InstitutionID string     `bson:"institutionId" json:"institutionId"`
	DonationID    string     `bson:"donationId" json:"donationId"`
	Score         int        `bson:"rating" json:"rating"`
	Comment       string     `bson:"comment" json:"comment"`
	Response      string     `bson:"response,omitempty" json:"response,omitempty"`
	RespondedAt   *time.Time `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
}

// NextAverage folds score into an aggregate of n ratings, rounded to one decimal.
func NextAverage(avg float64, n, score int) float64 {
	return math.Round((avg*float64(n)+float64(score))/float64(n+1)*10) / 10
}
