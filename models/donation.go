package models

import "time"

// Condition describes the state of a donated item.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionSemiNew Condition = "semi_new"
	ConditionUsed    Condition = "used"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionSemiNew, ConditionUsed:
		return true
	}
	return false
}

// DonationStatus is the lifecycle stage of a donation.
type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusScheduled DonationStatus = "scheduled"
	StatusDelivered DonationStatus = "delivered"
	StatusCancelled DonationStatus = "cancelled"
)

var donationTransitions = map[DonationStatus][]DonationStatus{
	StatusPending:   {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusDelivered, StatusCancelled},
}

// CanTransitionTo reports whether a donation may move from s to next.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	for _, allowed := range donationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s DonationStatus) Terminal() bool {
	return len(donationTransitions[s]) == 0
}

// Donation is an item offered by a donor.
type Donation struct {
	ID            string         `bson:"id" json:"id"`
	DonorID       string         `bson:"donorId" json:"donorId"`
	InstitutionID string         `bson:"institutionId,omitempty" json:"institutionId,omitempty"`
	Title         string         `bson:"title" json:"title"`
	Description   string         `bson:"description" json:"description"`
	Category      string         `bson:"category" json:"category"`
	Subcategory   string         `bson:"subcategory" json:"subcategory"`
	Condition     Condition      `bson:"condition" json:"condition"`
	Images        []string       `bson:"images" json:"images"`
	Status        DonationStatus `bson:"status" json:"status"`
	ScheduledDate *time.Time     `bson:"scheduledDate,omitempty" json:"scheduledDate,omitempty"`
	DeliveredDate *time.Time     `bson:"deliveredDate,omitempty" json:"deliveredDate,omitempty"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Schedule records an agreed drop-off of a donation at an institution.
type Schedule struct {
	ID            string    `bson:"id" json:"id"`
	DonationID    string    `bson:"donationId" json:"donationId"`
	InstitutionID string    `bson:"institutionId" json:"institutionId"`
	ScheduledDate time.Time `bson:"scheduledDate" json:"scheduledDate"`
	Notes         string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// DonorStats summarizes a donor's donations.
type DonorStats struct {
	Total              int `json:"total"`
	Pending            int `json:"pending"`
	Scheduled          int `json:"scheduled"`
	Delivered          int `json:"delivered"`
	Cancelled          int `json:"cancelled"`
	InstitutionsHelped int `json:"institutionsHelped"`
}
