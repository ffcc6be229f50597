package handlers

import (
	"doemais/services/auth"
)

// HandlerBundle groups the endpoint handlers handed to the router.
type HandlerBundle struct {
	// AuthService backs the bearer-token middleware.
	AuthService auth.AuthService

	Auth        *AuthHandler
	Category    *CategoryHandler
	Institution *InstitutionHandler
	Donation    *DonationHandler
	Rating      *RatingHandler
	Session     *SessionHandler
}
