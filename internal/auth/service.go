// Package auth guards the gateway's privileged admin operations with a
// bcrypt-hashed shared key.
package auth

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// Errors
var (
	ErrInvalidKey = errors.New("invalid admin key")
	ErrNoKeySet   = errors.New("no admin key configured")
)

const headerName = "X-Admin-Key"

// Service verifies admin keys against a stored bcrypt hash. With no hash
// configured every check fails; admin routes are effectively disabled.
type Service struct {
	keyHash []byte
}

// New creates a Service from a bcrypt hash of the admin key. An empty hash
// disables admin access.
func New(keyHash string) *Service {
	return &Service{keyHash: []byte(keyHash)}
}

// HashKey produces the bcrypt hash to configure the service with.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks a presented key against the configured hash.
func (s *Service) Verify(key string) error {
	if len(s.keyHash) == 0 {
		return ErrNoKeySet
	}
	if err := bcrypt.CompareHashAndPassword(s.keyHash, []byte(key)); err != nil {
		return ErrInvalidKey
	}
	return nil
}

// Enabled reports whether an admin key is configured.
func (s *Service) Enabled() bool {
	return len(s.keyHash) > 0
}

// Middleware rejects requests that do not carry a valid admin key.
func Middleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := service.Verify(r.Header.Get(headerName)); err != nil {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
