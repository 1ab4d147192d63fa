// Package auth provides JWT identity claims, password hashing, and the
// request authorization middleware for the placeshare API.
//
// AUTHENTICATION FLOW:
//  1. POST /api/users/signup or /api/users/login → AuthService verifies
//     credentials and calls TokenService.Generate
//  2. The client stores the token and sends it on every mutation as
//     "Authorization: Bearer <token>"
//  3. RequireAuth validates the token and puts the caller's Identity
//     (userID + email) into the request context
//
// The token is stateless: userID, email, and expiry live inside the signed
// payload, so validation needs no database round-trip. There is no refresh
// mechanism and no revocation list — after the fixed 1-hour lifetime the
// client must log in again.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/placeshare/internal/apperror"
)

// TokenLifetime is the fixed validity window of every issued token.
const TokenLifetime = time.Hour

const issuer = "placeshare"

// Identity is the verified claim payload attached to authenticated
// requests. It is immutable and threaded as an explicit value — never
// stored in package-level state.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the JWT payload: the registered claims (sub, iat, exp, iss)
// plus the user's email. Subject carries the internal user ID.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenService signs and validates identity tokens.
//
// It holds the HMAC secret used for both operations. The secret is loaded
// once at startup and shared read-only across requests.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate creates and signs a token asserting the given identity.
// The expiry is always now + TokenLifetime.
func (s *TokenService) Generate(userID, email string) (string, error) {
	now := time.Now()

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
			Issuer:    issuer,
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the Identity it
// asserts. It fails with apperror.ErrInvalidToken if the signature does
// not match, the token is structurally malformed, the issuer is wrong, or
// the expiry has passed.
//
// The signing method is pinned to HS256: without jwt.WithValidMethods a
// token claiming alg "none" could slip through (algorithm confusion).
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, apperror.InvalidToken(err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, apperror.InvalidToken(errors.New("auth: invalid token claims"))
	}
	if c.Subject == "" {
		return Identity{}, apperror.InvalidToken(errors.New("auth: token has no subject"))
	}

	return Identity{UserID: c.Subject, Email: c.Email}, nil
}
