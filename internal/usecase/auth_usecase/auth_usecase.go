package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/repository"

	"github.com/google/uuid"
)

// PasswordVerifier compares a plain password with a stored hash.
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// TokenIssuer mints and verifies the signed token pair.
type TokenIssuer interface {
	IssueAccess(user *model.User) (string, time.Time, error)
	IssueRefresh(user *model.User) (string, time.Time, error)
	ParseRefresh(raw string) (*Claims, error)
	AccessTTL() time.Duration
}

// RefreshDenylist remembers revoked refresh tokens by jti until they expire.
type RefreshDenylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type LoginInput struct {
	Identifier string // email or username depending on config
	Password   string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthUsecase struct {
	users      repository.UserRepository
	verifier   PasswordVerifier
	tokens     TokenIssuer
	denylist   RefreshDenylist
	loginField config.LoginField
}

// NewAuthUsecase wires the auth flow. denylist may be nil, in which case
// logout is unavailable and refresh tokens live until they expire.
func NewAuthUsecase(
	users repository.UserRepository,
	verifier PasswordVerifier,
	tokens TokenIssuer,
	denylist RefreshDenylist,
	loginField config.LoginField,
) *AuthUsecase {
	return &AuthUsecase{
		users:      users,
		verifier:   verifier,
		tokens:     tokens,
		denylist:   denylist,
		loginField: loginField,
	}
}

func (u *AuthUsecase) RevocationEnabled() bool {
	return u.denylist != nil
}

// ValidateUser returns nil without error when the identifier is unknown or
// the password does not match. Only infrastructure failures are errors.
func (u *AuthUsecase) ValidateUser(ctx context.Context, identifier, password string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil
	}

	var (
		user *model.User
		err  error
	)
	if u.loginField == config.LoginByUsername {
		user, err = u.users.FindByUsername(ctx, identifier)
	} else {
		user, err = u.users.FindByEmail(ctx, strings.ToLower(identifier))
	}
	if errors.Is(err, repository.ErrNotFound) {
		u.verifier.Verify(password, dummyPasswordHash())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !u.verifier.Verify(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	user, err := u.ValidateUser(ctx, in.Identifier, in.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	access, _, err := u.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, _, err := u.tokens.IssueRefresh(user)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(u.tokens.AccessTTL().Seconds()),
	}, nil
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*AccessToken, error) {
	claims, err := u.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	if u.denylist != nil {
		revoked, err := u.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	access, _, err := u.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	return &AccessToken{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(u.tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes a refresh token. An already expired token is accepted
// since it can no longer be used anyway.
func (u *AuthUsecase) Logout(ctx context.Context, refreshToken string) error {
	if u.denylist == nil {
		return ErrRevocationDisabled
	}

	claims, err := u.tokens.ParseRefresh(refreshToken)
	if errors.Is(err, ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	return u.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Me returns the caller's account with the password hash cleared.
func (u *AuthUsecase) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}

	safe := *user
	safe.PasswordHash = ""
	return &safe, nil
}
