// File: utils/constants.go
package utils

import (
	"time"

	"github.com/google/uuid"
)

// AuthCachePrefix is the prefix used for Redis token keys.
const AuthCachePrefix = "auth:"

// AuthEventsChannel is the pub/sub channel carrying sign-in and sign-out events.
const AuthEventsChannel = "auth:events"

// DefaultTokenTTL applies when no TOKEN_TTL is configured.
const DefaultTokenTTL = 24 * time.Hour

// NewID returns a random identifier for a new record.
func NewID() string {
	return uuid.NewString()
}
