// Package api implements the HTTP surface of the GreenCart simulation
// service: record CRUD, simulation runs, history, dashboards and streams.
package api

import (
	"net/http"
	"strings"

	"greencart/internal/auth"
)

// getPrincipal extracts the caller identity.
// - If Authorization: Bearer is present, uses the configured verifier.
// - Else falls back to headers for dev.
func (s *Server) getPrincipal(r *http.Request) auth.Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if p, err := s.Auth.Verify(tok); err == nil {
			return p
		}
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return auth.Principal{UserID: r.Header.Get("X-User-Id"), Role: strings.ToLower(role)}
}

// requireManager gates mutating endpoints; returns false after writing the
// problem response when the caller lacks the role.
func (s *Server) requireManager(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p := s.getPrincipal(r)
	if !p.IsManager() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "manager or admin role required", r.URL.Path)
		return p, false
	}
	return p, true
}
