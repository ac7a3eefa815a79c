package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"moviejournal/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	getByIDFn       func(ctx context.Context, id int64) (*domain.User, error)
	createFn        func(ctx context.Context, username, passwordHash, genre string) (*domain.User, error)
	similarFn       func(ctx context.Context, genre string, excludeID int64) ([]string, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash, genre string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, passwordHash, genre)
	}
	return &domain.User{ID: 1, Username: username, PasswordHash: passwordHash, Genre: genre}, nil
}

func (m *mockUserRepo) SimilarUsernames(ctx context.Context, genre string, excludeID int64) ([]string, error) {
	if m.similarFn != nil {
		return m.similarFn(ctx, genre, excludeID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) error
}

func (m *mockSessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, token, userAgent, ip, expiresAt)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) error {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(hash)
}

func TestAuthService_Register_HashesPassword(t *testing.T) {
	var gotHash, gotGenre string
	users := &mockUserRepo{
		createFn: func(_ context.Context, username, passwordHash, genre string) (*domain.User, error) {
			if username != "alice" {
				t.Errorf("expected trimmed username 'alice', got %q", username)
			}
			gotHash, gotGenre = passwordHash, genre
			return &domain.User{ID: 7, Username: username, PasswordHash: passwordHash, Genre: genre}, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, 0)

	user, err := svc.Register(context.Background(), "  alice ", "secret", " sci-fi ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != 7 {
		t.Errorf("expected id 7, got %d", user.ID)
	}
	if gotGenre != "sci-fi" {
		t.Errorf("expected genre 'sci-fi', got %q", gotGenre)
	}
	if gotHash == "secret" {
		t.Fatal("password stored in clear text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(gotHash), []byte("secret")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(_ context.Context, _, _, _ string) (*domain.User, error) {
			return nil, domain.ErrDuplicateUsername
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, 0)

	_, err := svc.Register(context.Background(), "alice", "secret", "")
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if errors.Is(err, ErrStorage) {
		t.Error("duplicate must not be reported as a storage error")
	}
}

func TestAuthService_Register_StorageFault(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(_ context.Context, _, _, _ string) (*domain.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, 0)

	_, err := svc.Register(context.Background(), "alice", "secret", "")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{
		createFn: func(_ context.Context, _, _, _ string) (*domain.User, error) {
			t.Fatal("create must not be called")
			return nil, nil
		},
	}, &mockSessionRepo{}, 0)

	tests := []struct {
		name, username, password string
	}{
		{"empty username", "", "secret"},
		{"blank username", "   ", "secret"},
		{"empty password", "alice", ""},
		{"password over 72 bytes", "alice", strings.Repeat("é", 40)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.username, tc.password, "")
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	hash := hashed(t, "correctpass")
	users := &mockUserRepo{
		getByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			if username == "testuser" {
				return &domain.User{ID: 1, Username: "testuser", PasswordHash: hash}, nil
			}
			if username == "ssouser" {
				return &domain.User{ID: 2, Username: "ssouser"}, nil
			}
			return nil, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, 0)

	tests := []struct {
		name, username, password string
		wantErr                  error
	}{
		{"match", "testuser", "correctpass", nil},
		{"wrong password", "testuser", "wrongpass", ErrInvalidCredentials},
		{"case sensitive password", "testuser", "CorrectPass", ErrInvalidCredentials},
		{"unknown user", "nobody", "correctpass", ErrInvalidCredentials},
		{"sso account without password", "ssouser", "", ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user, err := svc.Authenticate(context.Background(), tc.username, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil && (user == nil || user.ID != 1) {
				t.Fatalf("expected user 1, got %+v", user)
			}
		})
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	hash := hashed(t, "testpass123")

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: "testuser", PasswordHash: hash}, nil
		},
	}

	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
			if userID != 1 {
				t.Errorf("expected userID 1, got %d", userID)
			}
			if token == "" {
				t.Error("token should not be empty")
			}
			if userAgent != "agent" {
				t.Errorf("expected user agent 'agent', got %q", userAgent)
			}
			return nil
		},
	}

	svc := NewAuthService(users, sessions, time.Hour)
	token, user, err := svc.Login(ctx, "testuser", "testpass123", "agent", "127.0.0.1")

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected token, got empty string")
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %s", user.Username)
	}
}

func TestAuthService_ValidateSession_Valid(t *testing.T) {
	ctx := context.Background()
	token := "validtoken"

	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				UserID:    1,
				UserAgent: "agent",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	users := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
			return &domain.User{ID: 1, Username: "testuser", Genre: "drama"}, nil
		},
	}

	svc := NewAuthService(users, sessions, 0)
	user, err := svc.ValidateSession(ctx, token, "agent")

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "testuser" || user.Genre != "drama" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestAuthService_ValidateSession_Missing(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockSessionRepo{}, 0)

	if _, err := svc.ValidateSession(context.Background(), "", "agent"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound for empty token, got %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), "unknown", "agent"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthService_ValidateSession_Expired(t *testing.T) {
	ctx := context.Background()
	token := "expiredtoken"

	deleted := false
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				UserID:    1,
				ExpiresAt: time.Now().Add(-1 * time.Hour),
			}, nil
		},
		deleteFn: func(ctx context.Context, tok string) error {
			deleted = true
			return nil
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions, 0)

	_, err := svc.ValidateSession(ctx, token, "")
	if err != ErrSessionExpired {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if !deleted {
		t.Error("expected session to be deleted")
	}
}

func TestAuthService_ValidateSession_UserAgentMismatch(t *testing.T) {
	deleted := false
	sessions := &mockSessionRepo{
		getByTokenFn: func(_ context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{Token: tok, UserID: 1, UserAgent: "firefox", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		deleteFn: func(_ context.Context, _ string) error {
			deleted = true
			return nil
		},
	}
	svc := NewAuthService(&mockUserRepo{}, sessions, 0)

	if _, err := svc.ValidateSession(context.Background(), "tok", "curl"); err != ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !deleted {
		t.Error("expected session to be deleted")
	}
}

func TestAuthService_ValidateSession_StorageFault(t *testing.T) {
	sessions := &mockSessionRepo{
		getByTokenFn: func(_ context.Context, _ string) (*domain.Session, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewAuthService(&mockUserRepo{}, sessions, 0)

	_, err := svc.ValidateSession(context.Background(), "tok", "")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	var deletedToken string
	sessions := &mockSessionRepo{
		deleteFn: func(_ context.Context, tok string) error {
			deletedToken = tok
			return nil
		},
	}
	svc := NewAuthService(&mockUserRepo{}, sessions, 0)

	if err := svc.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedToken != "tok" {
		t.Errorf("expected 'tok' deleted, got %q", deletedToken)
	}
}

func TestAuthService_PurgeExpired(t *testing.T) {
	called := false
	sessions := &mockSessionRepo{
		deleteExpiredFn: func(context.Context) error {
			called = true
			return nil
		},
	}
	svc := NewAuthService(&mockUserRepo{}, sessions, 0)

	if err := svc.PurgeExpired(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected DeleteExpired to be called")
	}
	if svc.TTL() != DefaultSessionTTL {
		t.Errorf("expected default TTL, got %v", svc.TTL())
	}
}

func TestAuthService_ValidateForwardAuth_ExistingUser(t *testing.T) {
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: "ssouser"}, nil
		},
		createFn: func(_ context.Context, _, _, _ string) (*domain.User, error) {
			t.Fatal("create must not be called for an existing user")
			return nil, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, 0)

	user, err := svc.ValidateForwardAuth(context.Background(), "ssouser")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "ssouser" {
		t.Errorf("expected username 'ssouser', got %s", user.Username)
	}
}

func TestAuthService_ValidateForwardAuth_NewUser(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, passwordHash, genre string) (*domain.User, error) {
			if passwordHash != "" || genre != "" {
				t.Errorf("expected empty hash and genre, got %q %q", passwordHash, genre)
			}
			return &domain.User{ID: 2, Username: username}, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, 0)

	user, err := svc.ValidateForwardAuth(context.Background(), "newssouser")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "newssouser" {
		t.Errorf("expected username 'newssouser', got %s", user.Username)
	}

	if _, err := svc.ValidateForwardAuth(context.Background(), ""); err == nil {
		t.Error("expected error for empty header")
	}
}

func TestAuthService_LoginWithUser(t *testing.T) {
	created := false
	sessions := &mockSessionRepo{
		createFn: func(_ context.Context, userID int64, _, _, _ string, expiresAt time.Time) error {
			created = true
			if userID != 3 {
				t.Errorf("expected userID 3, got %d", userID)
			}
			if time.Until(expiresAt) > 2*time.Hour {
				t.Errorf("expected ttl of 2h, got expiry %v", expiresAt)
			}
			return nil
		},
	}
	users := &mockUserRepo{
		getByUsernameFn: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: 3, Username: "sso@example.com"}, nil
		},
	}
	svc := NewAuthService(users, sessions, 2*time.Hour)

	token, err := svc.LoginWithUser(context.Background(), "sso@example.com", "agent", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" || !created {
		t.Fatal("expected a session to be created")
	}
}
