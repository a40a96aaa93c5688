package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 8
	// bcrypt rejects inputs longer than 72 bytes, not characters.
	maxPasswordBytes = 72
)

func checkPassword(pw string) error {
	if len(pw) < minPasswordLength {
		return badRequest("password must be at least 8 characters")
	}
	if len(pw) > maxPasswordBytes {
		return badRequest("password must be at most 72 bytes")
	}
	return nil
}

// PasswordHasher turns a plain password into a storable hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// PasswordVerifier compares a plain password with a stored hash.
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// ObjectStorage stores uploaded bytes and hands back a public URL.
type ObjectStorage interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// photo types accepted for profile pictures
var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UserUsecase struct {
	users         repo.UserRepository
	hasher        PasswordHasher
	verifier      PasswordVerifier
	storage       ObjectStorage
	maxPhotoBytes int64
}

func NewUserUsecase(
	users repo.UserRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	storage ObjectStorage,
	maxPhotoBytes int64,
) *UserUsecase {
	return &UserUsecase{
		users:         users,
		hasher:        hasher,
		verifier:      verifier,
		storage:       storage,
		maxPhotoBytes: maxPhotoBytes,
	}
}

type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateUserInput is a partial update, nil fields are left unchanged.
// Role and IsActive may only be set by admins.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *model.Role
	IsActive  *bool
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Create registers a customer account.
func (u *UserUsecase) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	user := &model.User{
		Username:  strings.TrimSpace(in.Username),
		Email:     normalizeEmail(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      model.RoleCustomer,
		IsActive:  true,
	}
	if user.Username == "" || user.Email == "" {
		return nil, badRequest("username and email are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	if err := u.ensureUnique(ctx, uuid.Nil, user.Email, user.Username); err != nil {
		return nil, fail(ctx, "create user", err)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, fail(ctx, "create user", err)
	}
	user.PasswordHash = hash

	if err := u.users.Create(ctx, user); err != nil {
		return nil, fail(ctx, "create user", duplicate(err, "email or username already exists"))
	}
	return user, nil
}

// ensureUnique fails with Conflict when email or username belongs to a user other than self.
func (u *UserUsecase) ensureUnique(ctx context.Context, self uuid.UUID, email, username string) error {
	if email != "" {
		other, err := u.users.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if err == nil && other.ID != self {
			return conflict("email already exists")
		}
	}
	if username != "" {
		other, err := u.users.FindByUsername(ctx, username)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if err == nil && other.ID != self {
			return conflict("username already exists")
		}
	}
	return nil
}

func (u *UserUsecase) FindAll(ctx context.Context) ([]model.User, error) {
	users, err := u.users.List(ctx)
	if err != nil {
		return nil, fail(ctx, "list users", err)
	}
	return users, nil
}

func (u *UserUsecase) FindOne(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, "find user", lookup(err, "user"))
	}
	return user, nil
}

func (u *UserUsecase) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fail(ctx, "find user", lookup(err, "user"))
	}
	return user, nil
}

func (u *UserUsecase) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput, asAdmin bool) (*model.User, error) {
	if !asAdmin && (in.Role != nil || in.IsActive != nil) {
		return nil, forbidden("only admins can change role or status")
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, "update user", lookup(err, "user"))
	}

	var email, username string
	if in.Email != nil {
		email = normalizeEmail(*in.Email)
		if email == "" {
			return nil, badRequest("email must not be empty")
		}
		user.Email = email
	}
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, badRequest("username must not be empty")
		}
		user.Username = username
	}
	if err := u.ensureUnique(ctx, user.ID, email, username); err != nil {
		return nil, fail(ctx, "update user", err)
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, badRequest("invalid role")
		}
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.Password != nil {
		if err := checkPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := u.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fail(ctx, "update user", err)
		}
		user.PasswordHash = hash
	}

	if err := u.users.Update(ctx, user); err != nil {
		err = duplicate(lookup(err, "user"), "email or username already exists")
		return nil, fail(ctx, "update user", err)
	}
	return user, nil
}

// ToggleStatus flips the active flag of an account.
func (u *UserUsecase) ToggleStatus(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, "toggle user status", lookup(err, "user"))
	}
	user.IsActive = !user.IsActive
	if err := u.users.Update(ctx, user); err != nil {
		return nil, fail(ctx, "toggle user status", lookup(err, "user"))
	}
	return user, nil
}

// Remove deletes an account. Users that still own orders are kept so order
// history and revenue stay intact; deactivate them instead.
func (u *UserUsecase) Remove(ctx context.Context, id uuid.UUID) error {
	if err := u.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrInUse) {
			return conflict("user has orders and cannot be deleted")
		}
		return fail(ctx, "delete user", lookup(err, "user"))
	}
	return nil
}

func (u *UserUsecase) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return fail(ctx, "change password", lookup(err, "user"))
	}
	if !u.verifier.Verify(current, user.PasswordHash) {
		return badRequest("current password is incorrect")
	}

	hash, err := u.hasher.Hash(next)
	if err != nil {
		return fail(ctx, "change password", err)
	}
	user.PasswordHash = hash
	if err := u.users.Update(ctx, user); err != nil {
		return fail(ctx, "change password", lookup(err, "user"))
	}
	return nil
}

// UploadPhoto stores an image and saves its public URL on the user. The
// content type is sniffed from the bytes, not taken from the client.
func (u *UserUsecase) UploadPhoto(ctx context.Context, id uuid.UUID, data []byte) (*model.User, error) {
	if len(data) == 0 {
		return nil, badRequest("file is required")
	}
	if int64(len(data)) > u.maxPhotoBytes {
		return nil, NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	}

	mt := mimetype.Detect(data)
	if !photoTypes[mt.String()] {
		return nil, badRequest("unsupported file type " + mt.String())
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, "upload photo", lookup(err, "user"))
	}

	key := "avatars/" + user.ID.String() + "-" + uuid.NewString() + mt.Extension()
	url, err := u.storage.Put(ctx, key, mt.String(), bytes.NewReader(data))
	if err != nil {
		return nil, fail(ctx, "upload photo", err)
	}

	user.PhotoURL = url
	if err := u.users.Update(ctx, user); err != nil {
		// the row was not updated so the object would be orphaned
		_ = u.storage.Delete(ctx, key)
		return nil, fail(ctx, "upload photo", lookup(err, "user"))
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin, or promotes an existing account
// with that email. Running it again changes nothing.
func (u *UserUsecase) EnsureAdmin(ctx context.Context, email, username, password string) (*model.User, error) {
	email = normalizeEmail(email)
	user, err := u.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsAdmin() && user.IsActive {
			return user, nil
		}
		user.Role = model.RoleAdmin
		user.IsActive = true
		if err := u.users.Update(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	if err := checkPassword(password); err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user = &model.User{
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
