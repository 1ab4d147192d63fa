package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/auth"
)

func newTestAuthService(t *testing.T) (*AuthService, *mockStore) {
	t.Helper()
	store := newMockStore()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	return NewAuthService(store, tokens, passwords, testLogger(t)), store
}

func TestSignup_Success(t *testing.T) {
	svc, store := newTestAuthService(t)

	result, err := svc.Signup(context.Background(), "Ada", "ada@example.com", "hunter22", "uploads/ada.png")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if result.User.ID == "" {
		t.Error("Signup() did not assign a user ID")
	}
	if result.Token == "" {
		t.Error("Signup() did not issue a token")
	}
	if result.User.PasswordHash == "hunter22" {
		t.Error("Signup() stored the plaintext password")
	}
	if len(result.User.Places) != 0 {
		t.Errorf("Signup() owned set = %v, want empty", result.User.Places)
	}
	if stored := store.users[result.User.ID]; stored == nil {
		t.Error("Signup() did not persist the user")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "Ada", "a@x.com", "hunter22", ""); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}

	_, err := svc.Signup(ctx, "Imposter", "a@x.com", "different-pw", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second Signup() = %v, want ErrConflict", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"empty name", "", "a@x.com", "hunter22"},
		{"whitespace name", "   ", "a@x.com", "hunter22"},
		{"bad email", "Ada", "not-an-email", "hunter22"},
		{"short password", "Ada", "a@x.com", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.userName, tt.email, tt.password, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Signup() = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSignup_TokenRoundTrips(t *testing.T) {
	svc, _ := newTestAuthService(t)

	result, err := svc.Signup(context.Background(), "Ada", "ada@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	tokens, _ := auth.NewTokenService("test-secret-at-least-16-chars!!")
	ident, err := tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if ident.UserID != result.User.ID || ident.Email != "ada@example.com" {
		t.Errorf("token identity = %+v, want the signed-up user", ident)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, "Ada", "ada@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	result, err := svc.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != signup.User.ID {
		t.Errorf("Login() user = %q, want %q", result.User.ID, signup.User.ID)
	}
	if result.Token == "" {
		t.Error("Login() did not issue a token")
	}
}

func TestLogin_UniformUnauthorized(t *testing.T) {
	// Wrong password and unknown email must be indistinguishable: same
	// sentinel, same message.
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "Ada", "ada@example.com", "hunter22", ""); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	_, wrongPw := svc.Login(ctx, "ada@example.com", "not-the-password")
	_, unknown := svc.Login(ctx, "ghost@example.com", "whatever")

	if !errors.Is(wrongPw, apperror.ErrUnauthorized) {
		t.Errorf("wrong password = %v, want ErrUnauthorized", wrongPw)
	}
	if !errors.Is(unknown, apperror.ErrUnauthorized) {
		t.Errorf("unknown email = %v, want ErrUnauthorized", unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Errorf("messages differ (%q vs %q), callers can enumerate accounts", wrongPw.Error(), unknown.Error())
	}
}

func TestLogin_CaseInsensitiveEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "Ada", "Ada@Example.com", "hunter22", ""); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if _, err := svc.Login(ctx, "ADA@EXAMPLE.COM", "hunter22"); err != nil {
		t.Errorf("Login() with different email casing = %v, want success", err)
	}
}

func TestListUsers_ExcludesPasswordHash(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "Ada", "ada@example.com", "hunter22", ""); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("ListUsers() returned %d users, want 1", len(users))
	}
	// The real guarantee is the json:"-" tag: serializing must drop the hash.
	raw, err := json.Marshal(users[0])
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if strings.Contains(string(raw), "password") || strings.Contains(string(raw), "$2a$") {
		t.Errorf("serialized user leaks password material: %s", raw)
	}
}

func TestLoginOrRegisterGitHub(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()

	gh := &auth.GitHubUser{ID: 4242, Login: "ada", Name: "Ada L", Email: "ada@example.com"}

	first, err := svc.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("first LoginOrRegisterGitHub() error = %v", err)
	}
	if first.User.GitHubID != 4242 {
		t.Errorf("GitHubID = %d, want 4242", first.User.GitHubID)
	}
	if first.User.PasswordHash != "" {
		t.Error("OAuth user should have no password hash")
	}

	second, err := svc.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("second LoginOrRegisterGitHub() error = %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Error("second OAuth login created a duplicate account")
	}
	if len(store.users) != 1 {
		t.Errorf("store holds %d users, want 1", len(store.users))
	}

	// Password login against an OAuth-only account: plain bad credentials.
	if _, err := svc.Login(ctx, "ada@example.com", "anything"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("password login on OAuth account = %v, want ErrUnauthorized", err)
	}
}
