package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned for an absent or invalid credential.
var ErrUnauthorized = errors.New("unauthorized")

// Identity describes an authenticated caller.
type Identity struct {
	UserID           string
	IsServiceRequest bool
}

// Authenticator validates the Authorization header of a request.
type Authenticator interface {
	Authenticate(header string) (Identity, error)
}

// ServiceKeyAuth accepts a single shared bearer token. An empty configured
// key disables authentication, which is only sensible for local runs.
type ServiceKeyAuth struct {
	Key string
}

func (a ServiceKeyAuth) Authenticate(header string) (Identity, error) {
	if a.Key == "" {
		return Identity{IsServiceRequest: true}, nil
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.Key)) != 1 {
		return Identity{}, ErrUnauthorized
	}
	return Identity{IsServiceRequest: true}, nil
}

// requireAuth wraps a handler with header authentication.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.Authenticate(r.Header.Get("Authorization")); err != nil {
			s.writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r)
	}
}
