package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"govorilka/internal/content"
	"govorilka/internal/models"

	"github.com/c-pro/geche"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenExpiry = 24 * time.Hour

	// How long a verified token->user mapping is cached before the
	// signature is checked again.
	verifiedTokenTTL = 5 * time.Minute
)

type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User        models.User `json:"user"`
	Token       string      `json:"token"`
	TokenExpiry int64       `json:"tokenExpiry"`
}

type Config struct {
	Secret      string
	TokenExpiry time.Duration
}

func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if c.TokenExpiry == 0 {
		c.TokenExpiry = DefaultTokenExpiry
	}
	return nil
}

type userStore interface {
	CreateUser(user models.User, passwordHash string) error
	GetCredentialsByEmail(email string) (models.User, string, error)
	GetUser(id string) (models.User, error)
	TouchLastSeen(id string, ts int64) error
}

// Service issues and verifies bearer tokens and owns the password flow.
// Tokens are stateless signed JWTs; verified ones are cached briefly to keep
// signature checks off the per-request path.
type Service struct {
	Config
	store    userStore
	verified geche.Geche[string, string]
	now      func() time.Time
}

func NewService(ctx context.Context, config Config, store userStore) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		Config:   config,
		store:    store,
		verified: geche.NewMapTTLCache[string, string](ctx, verifiedTokenTTL, time.Minute),
		now:      time.Now,
	}, nil
}

// Register creates a new user with a bcrypt password hash and logs them in.
func (s *Service) Register(req RegisterRequest) (AuthResponse, error) {
	name := content.Sanitize(req.Name)
	if err := content.ValidateName(name); err != nil {
		return AuthResponse{}, err
	}
	if err := content.ValidateEmail(req.Email); err != nil {
		return AuthResponse{}, err
	}
	if len(req.Password) < 8 {
		return AuthResponse{}, fmt.Errorf("password must be at least 8 characters: %w", models.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().Unix()
	user := models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
		LastSeen:  now,
		CreatedAt: now,
	}
	if err := s.store.CreateUser(user, string(hash)); err != nil {
		return AuthResponse{}, err
	}

	return s.issueToken(user)
}

// Login checks the password and returns a fresh token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(req LoginRequest) (AuthResponse, error) {
	user, hash, err := s.store.GetCredentialsByEmail(req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return AuthResponse{}, models.ErrInvalidCredentials
		}
		return AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return AuthResponse{}, models.ErrInvalidCredentials
	}

	user.LastSeen = s.now().Unix()
	if err := s.store.TouchLastSeen(user.ID, user.LastSeen); err != nil {
		slog.Error("failed to update last seen on login", "user_id", user.ID, "error", err)
	}

	return s.issueToken(user)
}

func (s *Service) issueToken(user models.User) (AuthResponse, error) {
	now := s.now()
	expiry := now.Add(s.TokenExpiry)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		return AuthResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return AuthResponse{
		User:        user,
		Token:       token,
		TokenExpiry: expiry.Unix(),
	}, nil
}

// VerifyToken resolves a bearer token to a user ID.
func (s *Service) VerifyToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("missing token")
	}
	if userID, err := s.verified.Get(token); err == nil {
		return userID, nil
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}

	s.verified.Set(token, claims.Subject)
	return claims.Subject, nil
}

// GetUser returns the public user object for an authenticated identity.
func (s *Service) GetUser(id string) (models.User, error) {
	return s.store.GetUser(id)
}
