package auth

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer mints and validates the HS256 bearer tokens the API accepts.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer builds TokenIssuer instance.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Claims is the token payload: subject carries the user UUID, name the
// username for log correlation.
type Claims struct {
	Username string `json:"name,omitempty"`
	jwtv5.RegisteredClaims
}

// Issue signs a token for the user, expiring after the configured TTL.
func (t *TokenIssuer) Issue(userID uuid.UUID, username string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a bearer token and returns the subject user ID and username.
// Only HS256 is accepted.
func (t *TokenIssuer) Verify(token string) (uuid.UUID, string, error) {
	parsed, err := jwtv5.ParseWithClaims(token, &Claims{}, func(tok *jwtv5.Token) (any, error) {
		if _, ok := tok.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return t.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return uuid.Nil, "", errors.New("auth: invalid token claims")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("auth: parse subject: %w", err)
	}
	return userID, claims.Username, nil
}
