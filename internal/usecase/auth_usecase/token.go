package auth

import (
	"errors"
	"fmt"
	"time"

	"shopapi/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Claims is the signed payload of both token kinds. Role is only set on
// access tokens.
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role,omitempty"`
	Type  TokenType  `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWTIssuer signs and verifies HS256 tokens. Access and refresh tokens use
// different secrets so one can never be accepted as the other.
type JWTIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         Clock
}

func NewJWTIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, clock Clock) *JWTIssuer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &JWTIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		clock:         clock,
	}
}

func (i *JWTIssuer) AccessTTL() time.Duration { return i.accessTTL }

func (i *JWTIssuer) IssueAccess(user *model.User) (string, time.Time, error) {
	return i.issue(user, TokenTypeAccess, user.Role, i.accessSecret, i.accessTTL)
}

func (i *JWTIssuer) IssueRefresh(user *model.User) (string, time.Time, error) {
	return i.issue(user, TokenTypeRefresh, "", i.refreshSecret, i.refreshTTL)
}

func (i *JWTIssuer) issue(user *model.User, typ TokenType, role model.Role, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := i.clock.Now()
	exp := now.Add(ttl)

	claims := Claims{
		Email: user.Email,
		Role:  role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

func (i *JWTIssuer) ParseAccess(raw string) (*Claims, error) {
	return i.parse(raw, TokenTypeAccess, i.accessSecret)
}

func (i *JWTIssuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, TokenTypeRefresh, i.refreshSecret)
}

// parse returns ErrTokenExpired for well-formed tokens past their expiry
// and ErrTokenInvalid for everything else.
func (i *JWTIssuer) parse(raw string, want TokenType, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Type != want {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
