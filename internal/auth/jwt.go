// Package auth verifies attendee bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/confhub/recommender/internal/huberrors"
)

// leeway tolerates small clock skew between the token issuer and this service.
const leeway = 30 * time.Second

// Claims are the registered JWT claims carried by an attendee token. Subject is the profile ID.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HS256 bearer tokens and resolves them to a profile ID.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTAuthenticator creates an authenticator. An empty issuer disables the iss check.
func NewJWTAuthenticator(secret, issuer string) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}

	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Authenticate validates token and returns the profile ID in its subject.
// Every failure is a huberrors.UnauthenticatedError so callers map it to 401.
func (a *JWTAuthenticator) Authenticate(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, huberrors.NewUnauthenticatedError("missing bearer token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return uuid.Nil, huberrors.NewUnauthenticatedError("invalid bearer token")
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, huberrors.NewUnauthenticatedError("token subject is not a profile id")
	}

	return subject, nil
}

// IssueToken signs an HS256 token for profileID valid for ttl. Used by tooling and tests.
func IssueToken(secret, issuer string, profileID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
