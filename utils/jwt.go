package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"doemais/config"

	"github.com/golang-jwt/jwt"
)

const fallbackSecret = "doemais-dev-secret"

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is what a session token asserts about its bearer.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

func secretKey() []byte {
	if config.AppConfig.JWTSecret == "" {
		return []byte(fallbackSecret)
	}
	return []byte(config.AppConfig.JWTSecret)
}

// GenerateToken signs an HS256 token for subject with the account role.
func GenerateToken(subject, role string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"jti":  NewID(),
		"iat":  now.Unix(),
		"exp":  now.Add(duration).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey())
}

// HashToken is the key under which a token is stored server side.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ParseToken checks the signature and expiry of raw and returns its claims.
func ParseToken(raw string) (TokenClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
	if err != nil || !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}

	out := TokenClaims{}
	out.Subject, _ = claims["sub"].(string)
	out.Role, _ = claims["role"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if out.Subject == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	return out, nil
}
