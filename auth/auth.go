// Package auth manages user credentials and the bearer tokens that name
// the owner of every session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rustyeddy/stratlab/journal"
)

// Anonymous is the identity of a request without a valid token.
const Anonymous = "anonymous"

const (
	MinSecretLen    = 32
	DefaultTokenTTL = 24 * time.Hour
	issuer          = "stratlab"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already taken")
	ErrAnonymous          = errors.New("sign in required")
	ErrInvalidToken       = errors.New("invalid token")
)

type UserStore interface {
	CreateUser(ctx context.Context, u journal.User) error
	GetUser(ctx context.Context, username string) (journal.User, error)
}

type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// ValidateSecret rejects empty and short signing secrets.
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLen {
		return fmt.Errorf("jwt secret must be at least %d characters", MinSecretLen)
	}
	return nil
}

func New(users UserStore, secret string, ttl time.Duration) (*Service, error) {
	if err := ValidateSecret(secret); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{users: users, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func validUsername(name string) error {
	switch {
	case name == "":
		return errors.New("username is required")
	case strings.EqualFold(name, Anonymous):
		return fmt.Errorf("username %q is reserved", name)
	case len(name) > 64:
		return errors.New("username longer than 64 characters")
	case strings.ContainsAny(name, " \t\r\n/"):
		return errors.New("username may not contain whitespace or '/'")
	}
	return nil
}

// Signup stores a new user with a bcrypt hash of password.
func (s *Service) Signup(ctx context.Context, username, password string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.users.CreateUser(ctx, journal.User{Username: username, PasswordHash: string(hash)})
	if errors.Is(err, journal.ErrUserExists) {
		return ErrUserExists
	}
	return err
}

// Login checks the password and returns a signed token for the user.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetUser(ctx, username)
	if errors.Is(err, journal.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.Issue(username)
}

// Issue signs an HS256 token whose subject is username.
func (s *Service) Issue(username string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Identify returns the username a token was issued to. An empty token is
// Anonymous; a bad or expired one is ErrInvalidToken.
func (s *Service) Identify(token string) (string, error) {
	if token == "" {
		return Anonymous, nil
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// IsAnonymous reports whether owner is the anonymous identity.
func IsAnonymous(owner string) bool {
	return owner == "" || owner == Anonymous
}
