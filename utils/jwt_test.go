package utils

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenRoundTrip(t *testing.T) {
	raw, err := GenerateToken("donor1", "donor", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "donor1", claims.Subject)
	assert.Equal(t, "donor", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestParseTokenRejectsBadTokens(t *testing.T) {
	expired, err := GenerateToken("donor1", "donor", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	good, err := GenerateToken("donor1", "donor", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(good + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashTokenIsStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(ValidationError("x")))
	assert.Equal(t, http.StatusConflict, StatusFor(ConflictError("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(BusinessRuleError("x")))
	assert.Equal(t, http.StatusNotFound, StatusFor(NotFoundError("x")))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(UnauthorizedError("x")))
	assert.Equal(t, http.StatusForbidden, StatusFor(ForbiddenError("x")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(assert.AnError))
}
