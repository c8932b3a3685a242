package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/personalens/personalens/internal/api/response"
)

// Auth guards the internal worker and admin routes with the shared worker
// token. Comparison is constant-time; an empty configured token rejects
// everything rather than allowing everything.
type Auth struct {
	workerToken string
}

func NewAuth(workerToken string) *Auth {
	return &Auth{workerToken: workerToken}
}

// RequireWorkerToken validates the Bearer token against the configured
// worker token.
func (a *Auth) RequireWorkerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if a.workerToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(a.workerToken)) != 1 {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid worker token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
