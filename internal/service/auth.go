// Package service contains the business logic layer: authentication and
// the place-ownership rules. Services accept primitives and context,
// return domain models and apperror values, and know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/auth"
	"github.com/sakif/placeshare/internal/model"
	"github.com/sakif/placeshare/internal/repository"
)

// MinPasswordLength is the signup floor. Complexity rules live client-side;
// the server only enforces the hard minimum.
const MinPasswordLength = 6

// AuthService orchestrates signup and login over the user repository, the
// password hasher, and the token issuer.
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user and their issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup registers a new account.
//
// Fails with ErrValidation for format problems, ErrConflict when the
// email is already registered. On success the user is persisted with an
// empty owned-place set and an identity token is issued.
func (s *AuthService) Signup(ctx context.Context, name, email, password, imagePath string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	digest, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, apperror.ErrHashFormat) {
			return nil, err
		}
		return nil, apperror.ValidationFailed("password", "password could not be processed")
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		Image:        imagePath,
		Places:       []string{},
	}

	// The repository maps the UNIQUE email constraint to ErrConflict, so
	// a concurrent duplicate signup loses cleanly instead of racing a
	// lookup-then-insert.
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StoreUnavailable(err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue token after signup",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StoreUnavailable(err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and issues a token.
//
// Unknown email and wrong password produce the IDENTICAL ErrUnauthorized
// value — nothing in the kind, message, or shape may reveal which check
// failed, or the endpoint becomes an account-enumeration oracle.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized()
		}
		s.logger.Error("login lookup failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StoreUnavailable(err)
	}

	// OAuth-only accounts have no password hash; treat a password login
	// against one as plain bad credentials.
	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized()
	}

	ok, err := s.passwords.Verify(user.PasswordHash, password)
	if err != nil {
		// Malformed digest in the store — an operational problem, not a
		// credentials problem. Log it loudly, answer generically.
		s.logger.Error("stored password hash is malformed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized()
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue token after login",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StoreUnavailable(err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// ListUsers returns all users. The password hash never serializes (model
// tag), so the projection is safe for the public users listing.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, apperror.StoreUnavailable(err)
	}
	return users, nil
}

// LoginOrRegisterGitHub completes a GitHub OAuth login: the first login
// creates an account (empty owned set, no password), later logins reuse
// it. Either way a normal identity token is issued.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.store.Users().GetByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		// Returning user.
	case errors.Is(err, apperror.ErrNotFound):
		name := ghUser.Name
		if name == "" {
			name = ghUser.Login
		}
		email := ghUser.Email
		if email == "" {
			// GitHub hides the email for some accounts; synthesize the
			// noreply form so the unique-email column stays meaningful.
			email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
		}

		user = &model.User{
			Name:     name,
			Email:    strings.ToLower(email),
			GitHubID: ghUser.ID,
			Image:    ghUser.AvatarURL,
			Places:   []string{},
		}
		if err := s.store.Users().Create(ctx, user); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				return nil, err
			}
			return nil, apperror.StoreUnavailable(err)
		}
		s.logger.Info("user registered via GitHub",
			slog.String("userID", user.ID),
			slog.Int64("githubID", ghUser.ID),
		)
	default:
		return nil, apperror.StoreUnavailable(err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, apperror.StoreUnavailable(err)
	}

	return &AuthResult{User: user, Token: token}, nil
}
