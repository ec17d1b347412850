package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/EmpoweredVote/EV-Auth/internal/apperr"
	"github.com/EmpoweredVote/EV-Auth/internal/blob"
	"github.com/EmpoweredVote/EV-Auth/internal/metrics"
	"github.com/EmpoweredVote/EV-Auth/internal/tokens"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
)

// Client-facing messages. Each failure class has exactly one message so
// responses never reveal which check failed.
const (
	msgLoginRequired      = "Please login to access this resource"
	msgInvalidLogin       = "Invalid email or password"
	msgMissingCredentials = "Please enter email and password"
	msgNoRefreshToken     = "No refresh token provided"
	msgInvalidRefresh     = "Invalid refresh token"
	msgEmailExists        = "Email already exists"
	msgUserNotFound       = "User not found"
)

const (
	avatarFolder = "avatar"
	avatarWidth  = 150
)

// Service issues, resolves and renews sessions for users held in a users.Store.
type Service struct {
	users  users.Store
	tokens *tokens.Manager
	blobs  blob.Store
}

func NewService(store users.Store, tm *tokens.Manager, blobs blob.Store) *Service {
	if blobs == nil {
		blobs = blob.Disabled{}
	}
	return &Service{users: store, tokens: tm, blobs: blobs}
}

func (s *Service) Tokens() *tokens.Manager { return s.tokens }

// Rotate mints a new pair, makes its refresh token the user's only live one and
// persists the user. No pair is returned unless the save succeeded.
func (s *Service) Rotate(ctx context.Context, u *users.User) (*users.User, tokens.Pair, error) {
	pair, err := s.tokens.Mint(u.ID)
	if err != nil {
		return nil, tokens.Pair{}, apperr.Internal(err)
	}

	next := *u
	next.RefreshToken = &pair.RefreshToken
	if err := s.users.Save(ctx, &next); err != nil {
		return nil, tokens.Pair{}, apperr.Internal(fmt.Errorf("persisting refresh token for %s: %w", u.ID, err))
	}

	metrics.TokensIssued.Inc()
	return &next, pair, nil
}

// Resolve verifies an access token and loads its user. Every failure that
// is not a store outage reads the same to the caller.
func (s *Service) Resolve(ctx context.Context, accessToken string) (*users.User, error) {
	if accessToken == "" {
		metrics.AuthFailures.WithLabelValues("missing").Inc()
		return nil, apperr.Unauthenticated(msgLoginRequired, nil)
	}

	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid").Inc()
		return nil, apperr.Unauthenticated(msgLoginRequired, err)
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, users.ErrNotFound) {
		metrics.AuthFailures.WithLabelValues("unknown_user").Inc()
		return nil, apperr.Unauthenticated(msgLoginRequired, err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Renew exchanges the user's current refresh token for a new pair. A token that
// verifies but is not the one stored on the user (already rotated, or replayed
// after logout) is refused.
func (s *Service) Renew(ctx context.Context, refreshToken string) (*users.User, tokens.Pair, error) {
	if refreshToken == "" {
		metrics.Renewals.WithLabelValues(metrics.RenewMissing).Inc()
		return nil, tokens.Pair{}, apperr.Forbidden(msgNoRefreshToken, nil)
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		metrics.Renewals.WithLabelValues(metrics.RenewInvalid).Inc()
		return nil, tokens.Pair{}, apperr.Forbidden(msgInvalidRefresh, err)
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, users.ErrNotFound) {
		metrics.Renewals.WithLabelValues(metrics.RenewInvalid).Inc()
		return nil, tokens.Pair{}, apperr.Forbidden(msgInvalidRefresh, err)
	}
	if err != nil {
		return nil, tokens.Pair{}, apperr.Internal(err)
	}

	stored := u.StoredRefreshToken()
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		metrics.Renewals.WithLabelValues(metrics.RenewMismatch).Inc()
		log.Printf("[auth] refresh token mismatch for user %s", u.ID)
		return nil, tokens.Pair{}, apperr.Forbidden(msgInvalidRefresh, nil)
	}

	u, pair, err := s.Rotate(ctx, u)
	if err != nil {
		return nil, tokens.Pair{}, err
	}
	metrics.Renewals.WithLabelValues(metrics.RenewOK).Inc()
	return u, pair, nil
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*users.User, tokens.Pair, error) {
	name = strings.TrimSpace(name)
	email = users.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, tokens.Pair{}, apperr.Validation("Please enter name, email and password")
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, tokens.Pair{}, apperr.Conflict(msgEmailExists)
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, tokens.Pair{}, apperr.Internal(err)
	}

	u := &users.User{Name: name, Email: email, Role: users.RoleUser}
	if err := u.SetPassword(password); err != nil {
		return nil, tokens.Pair{}, apperr.Internal(err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration for the same address
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, tokens.Pair{}, apperr.Conflict(msgEmailExists)
		}
		return nil, tokens.Pair{}, apperr.Internal(err)
	}
	log.Printf("[auth] registered user %s", u.ID)

	return s.Rotate(ctx, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*users.User, tokens.Pair, error) {
	email = users.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, tokens.Pair{}, apperr.Validation(msgMissingCredentials)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return nil, tokens.Pair{}, apperr.InvalidCredentials(msgInvalidLogin)
	}
	if err != nil {
		return nil, tokens.Pair{}, apperr.Internal(err)
	}
	if !u.ComparePassword(password) {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return nil, tokens.Pair{}, apperr.InvalidCredentials(msgInvalidLogin)
	}

	return s.Rotate(ctx, u)
}

// Logout drops the stored refresh token so it can no longer be renewed.
func (s *Service) Logout(ctx context.Context, u *users.User) error {
	if u == nil || u.RefreshToken == nil {
		return nil
	}
	next := *u
	next.RefreshToken = nil
	if err := s.users.Save(ctx, &next); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// EndSession revokes whichever session the request's cookies identify. The
// access token is tried first; when it is missing or expired, a refresh token
// that matches the stored one identifies the user instead. Nothing to revoke
// is not an error.
func (s *Service) EndSession(ctx context.Context, accessToken, refreshToken string) error {
	u, err := s.Resolve(ctx, accessToken)
	if err != nil && !apperr.Is(err, apperr.KindUnauthenticated) {
		return err
	}
	if u == nil {
		if u, err = s.refreshOwner(ctx, refreshToken); err != nil {
			return err
		}
	}
	return s.Logout(ctx, u)
}

// refreshOwner returns the user whose stored refresh token is refreshToken,
// or nil when the token does not identify a live session.
func (s *Service) refreshOwner(ctx context.Context, refreshToken string) (*users.User, error) {
	if refreshToken == "" {
		return nil, nil
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, nil
	}
	u, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	stored := u.StoredRefreshToken()
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return nil, nil
	}
	return u, nil
}

// SocialAuth signs in the account with this email, creating it on first use.
// Accounts are matched on email alone; the provider is not recorded.
func (s *Service) SocialAuth(ctx context.Context, email, name, avatarURL string) (*users.User, tokens.Pair, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return nil, tokens.Pair{}, apperr.Validation("Please provide an email")
	}

	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, users.ErrNotFound):
		u = &users.User{
			Name:   strings.TrimSpace(name),
			Email:  email,
			Role:   users.RoleUser,
			Avatar: users.Avatar{URL: avatarURL},
		}
		err := s.users.Create(ctx, u)
		if errors.Is(err, users.ErrEmailTaken) {
			// a concurrent sign-in created the account first
			u, err = s.users.FindByEmail(ctx, email)
		} else if err == nil {
			log.Printf("[auth] created user %s via social sign-in", u.ID)
		}
		if err != nil {
			return nil, tokens.Pair{}, apperr.Internal(err)
		}
	default:
		return nil, tokens.Pair{}, apperr.Internal(err)
	}

	return s.Rotate(ctx, u)
}

// Profile reloads the user from the store.
func (s *Service) Profile(ctx context.Context, id string) (*users.User, error) {
	return s.find(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id, name string) (*users.User, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = name
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *Service) UpdatePassword(ctx context.Context, id, oldPassword, newPassword string) (*users.User, error) {
	if oldPassword == "" || newPassword == "" {
		return nil, apperr.Validation("Please enter old and new password")
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.ComparePassword(oldPassword) {
		return nil, apperr.InvalidCredentials("Invalid old password")
	}
	if err := u.SetPassword(newPassword); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// UpdateAvatar replaces the user's avatar. The new image is uploaded and saved
// before the previous one is destroyed, so a failure leaves the old avatar in place.
func (s *Service) UpdateAvatar(ctx context.Context, id, data string) (*users.User, error) {
	if data == "" {
		return nil, apperr.Validation("Please provide an avatar")
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	asset, err := s.blobs.Upload(ctx, data, blob.UploadOptions{Folder: avatarFolder, Width: avatarWidth})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	previous := u.Avatar
	next := *u
	next.Avatar = users.Avatar{PublicID: asset.ID, URL: asset.URL}
	if err := s.users.Save(ctx, &next); err != nil {
		s.destroyBlob(ctx, asset.ID)
		return nil, apperr.Internal(err)
	}

	if previous.PublicID != "" {
		s.destroyBlob(ctx, previous.PublicID)
	}
	return &next, nil
}

// destroyBlob removes an image nothing references any more. Failures only
// leave an orphan behind, so they are logged.
func (s *Service) destroyBlob(ctx context.Context, id string) {
	if err := s.blobs.Destroy(ctx, id); err != nil {
		log.Printf("[auth] orphaned avatar %s: %v", id, err)
	}
}

func (s *Service) ListUsers(ctx context.Context) ([]users.User, error) {
	list, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// UpdateRole sets a recognised role on another user.
func (s *Service) UpdateRole(ctx context.Context, id, role string) (*users.User, error) {
	r, err := users.ParseRole(role)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("Invalid role %q", role))
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = r
	if err := s.users.Save(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	log.Printf("[auth] user %s role set to %s", u.ID, r)
	return u, nil
}

func (s *Service) ListInstructors(ctx context.Context) ([]users.User, error) {
	list, err := s.users.ListByRole(ctx, users.RoleInstructor)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (s *Service) find(ctx context.Context, id string) (*users.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, users.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}
