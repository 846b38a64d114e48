package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/faucetdb/foliogate/internal/model"
)

var (
	ErrUnknownPasswordType = errors.New("invalid password type")
	ErrEmptyPassword       = errors.New("password must not be empty")
)

// AuthService checks submitted passwords against the configured admin and
// project secrets. A secret may be a bcrypt hash or plain text; an empty
// secret never matches.
type AuthService struct {
	adminSecret   string
	projectSecret string
}

func NewAuthService(adminSecret, projectSecret string) *AuthService {
	return &AuthService{
		adminSecret:   adminSecret,
		projectSecret: projectSecret,
	}
}

// VerifyPassword reports whether password matches the secret for kind.
func (s *AuthService) VerifyPassword(kind, password string) (bool, error) {
	var secret string
	switch kind {
	case model.PasswordTypeAdmin:
		secret = s.adminSecret
	case model.PasswordTypeProject:
		secret = s.projectSecret
	default:
		return false, ErrUnknownPasswordType
	}
	if secret == "" {
		return false, nil
	}
	return matchSecret(secret, password), nil
}

// Configured reports whether a secret is set for kind.
func (s *AuthService) Configured(kind string) bool {
	switch kind {
	case model.PasswordTypeAdmin:
		return s.adminSecret != ""
	case model.PasswordTypeProject:
		return s.projectSecret != ""
	}
	return false
}

// HashPassword returns a bcrypt hash suitable for use as a configured secret.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func matchSecret(secret, password string) bool {
	if isBcryptHash(secret) {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	// Compare fixed-size digests so timing does not depend on length.
	a := sha256.Sum256([]byte(secret))
	b := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
