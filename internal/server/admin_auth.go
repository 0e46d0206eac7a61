package server

import (
	"errors"
	"net/http"
	"strings"

	"ugcmigrate/internal/auth"
)

// withAdmin requires a bearer token matching the configured admin token
// hash. Without a configured hash every admin request is refused.
func (s *Server) withAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminTokenHash == "" {
			s.writeServiceError(w, r, forbidden(errors.New("admin access is not configured")))
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			s.writeServiceError(w, r, unauthorized(errors.New("admin token required")))
			return
		}
		if !auth.VerifyToken(s.adminTokenHash, token) {
			s.writeServiceError(w, r, forbidden(errors.New("invalid admin token")))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}
