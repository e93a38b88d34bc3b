package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"govorilka/internal/models"

	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users  map[string]models.User
	hashes map[string]string // keyed by email
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  make(map[string]models.User),
		hashes: make(map[string]string),
	}
}

func (f *fakeUserStore) CreateUser(user models.User, passwordHash string) error {
	if _, ok := f.hashes[user.Email]; ok {
		return models.ErrUserExists
	}
	f.users[user.ID] = user
	f.hashes[user.Email] = passwordHash
	return nil
}

func (f *fakeUserStore) GetCredentialsByEmail(email string) (models.User, string, error) {
	hash, ok := f.hashes[email]
	if !ok {
		return models.User{}, "", models.ErrNotFound
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, hash, nil
		}
	}
	return models.User{}, "", models.ErrNotFound
}

func (f *fakeUserStore) GetUser(id string) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) TouchLastSeen(id string, ts int64) error {
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.LastSeen = ts
	f.users[id] = u
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUserStore) {
	t.Helper()
	store := newFakeUserStore()
	svc, err := NewService(t.Context(), Config{Secret: "test-secret"}, store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestRegisterAndVerify(t *testing.T) {
	svc, store := newTestService(t)

	resp, err := svc.Register(RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("no token issued")
	}
	if resp.User.Name != "Alice" || resp.User.ID == "" {
		t.Errorf("registered user = %+v", resp.User)
	}

	// Stored hash is bcrypt, never the plaintext.
	hash := store.hashes["alice@example.com"]
	if hash == "correct horse" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	userID, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if userID != resp.User.ID {
		t.Errorf("token resolved to %q, want %q", userID, resp.User.ID)
	}

	// Cached path resolves identically.
	again, err := svc.VerifyToken(resp.Token)
	if err != nil || again != userID {
		t.Errorf("cached verify = (%q, %v)", again, err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"empty name", RegisterRequest{Email: "a@b.com", Password: "longenough"}},
		{"html-only name", RegisterRequest{Name: "<script></script>", Email: "a@b.com", Password: "longenough"}},
		{"bad email", RegisterRequest{Name: "Alice", Email: "not-an-email", Password: "longenough"}},
		{"short password", RegisterRequest{Name: "Alice", Email: "a@b.com", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(tc.req); !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("Register(%+v) = %v, want ErrInvalidArgument", tc.req, err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	req := RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "longenough"}
	if _, err := svc.Register(req); err != nil {
		t.Fatal(err)
	}
	req.Name = "Imposter"
	if _, err := svc.Register(req); !errors.Is(err, models.ErrUserExists) {
		t.Errorf("duplicate register = %v, want ErrUserExists", err)
	}
}

func TestLogin(t *testing.T) {
	svc, store := newTestService(t)

	if _, err := svc.Register(RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Login(LoginRequest{Email: "alice@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" {
		t.Error("no token on login")
	}
	if store.users[resp.User.ID].LastSeen == 0 {
		t.Error("login did not touch last seen")
	}

	// Wrong password and unknown email fail the same way.
	if _, err := svc.Login(LoginRequest{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(LoginRequest{Email: "nobody@example.com", Password: "whatever"}); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyToken_Rejections(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.VerifyToken(""); err == nil {
		t.Error("empty token accepted")
	}
	if _, err := svc.VerifyToken("not.a.jwt"); err == nil {
		t.Error("garbage token accepted")
	}

	// Token signed with a different secret.
	other, err := NewService(context.Background(), Config{Secret: "other-secret"}, newFakeUserStore())
	if err != nil {
		t.Fatal(err)
	}
	resp, err := other.Register(RegisterRequest{Name: "Eve", Email: "eve@example.com", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyToken(resp.Token); err == nil {
		t.Error("token with wrong signature accepted")
	}
}

func TestVerifyToken_Expiry(t *testing.T) {
	svc, _ := newTestService(t)
	svc.TokenExpiry = time.Hour

	base := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return base }

	resp, err := svc.Register(RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TokenExpiry != base.Add(time.Hour).Unix() {
		t.Errorf("TokenExpiry = %d, want %d", resp.TokenExpiry, base.Add(time.Hour).Unix())
	}

	// Fresh service with the same secret but a clock past the expiry; no
	// verified-token cache entry to short-circuit the check.
	late, err := NewService(context.Background(), Config{Secret: "test-secret"}, newFakeUserStore())
	if err != nil {
		t.Fatal(err)
	}
	late.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := late.VerifyToken(resp.Token); err == nil {
		t.Error("expired token accepted")
	}
}
