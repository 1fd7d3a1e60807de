package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"review_proxy/internal/domain"
)

const (
	credentialsKey = "credentials"
	adminRecord    = "admin"
	tokenTTL       = 24 * time.Hour
	bcryptCost     = 10
)

type credential struct {
	Username string `json:"username"`
	Password string `json:"password"` // bcrypt hash
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService guards the single admin account.
type AuthService struct {
	store           domain.DocumentStore
	secret          []byte
	username        string
	defaultPassword string
	now             func() time.Time
}

func NewAuthService(store domain.DocumentStore, secret, username, defaultPassword string) *AuthService {
	return &AuthService{
		store:           store,
		secret:          []byte(secret),
		username:        username,
		defaultPassword: defaultPassword,
		now:             time.Now,
	}
}

// WithClock swaps the time source used for issuing and checking tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login checks the admin credentials and returns a signed 24h token. Before any
// credential is stored, the configured default pair is accepted and its hash is
// saved on a best-effort basis.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.NewValidationError("", "username and password are required")
	}

	creds := map[string]credential{}
	ok, err := s.store.Get(ctx, credentialsKey, &creds)
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}

	admin, stored := creds[adminRecord]
	switch {
	case ok && stored:
		if username != admin.Username {
			return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials}
		}
		if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
			return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials, Err: err}
		}
	default:
		if username != s.username || password != s.defaultPassword {
			return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials}
		}
		s.initCredentials(ctx, creds, password)
	}

	return s.issue(username)
}

func (s *AuthService) initCredentials(ctx context.Context, creds map[string]credential, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Warn().Err(err).Msg("hash default admin password")
		return
	}
	creds[adminRecord] = credential{Username: s.username, Password: string(hash)}
	if err := s.store.Put(ctx, credentialsKey, creds); err != nil {
		log.Warn().Err(err).Msg("could not store admin credentials")
		return
	}
	log.Info().Str("username", s.username).Msg("admin credentials initialized")
}

// SetPassword replaces the stored admin password.
func (s *AuthService) SetPassword(ctx context.Context, password string) error {
	if len(password) < 8 {
		return domain.NewValidationError("password", "must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	creds := map[string]credential{}
	if _, err := s.store.Get(ctx, credentialsKey, &creds); err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	creds[adminRecord] = credential{Username: s.username, Password: string(hash)}
	return s.store.Put(ctx, credentialsKey, creds)
}

func (s *AuthService) issue(username string) (string, error) {
	now := s.now().UTC()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the username asserted by a valid, unexpired token.
func (s *AuthService) Verify(token string) (string, error) {
	if token == "" {
		return "", &domain.AuthError{Reason: domain.AuthMissingToken}
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", &domain.AuthError{Reason: domain.AuthInvalidToken, Err: err}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return "", &domain.AuthError{Reason: domain.AuthInvalidToken, Err: errors.New("invalid claims")}
	}
	return claims.Username, nil
}
