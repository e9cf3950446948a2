package daemon

import (
	"fmt"
	"net/http"
	"strings"

	"podstudio/internal/services"
)

// headerUserID carries the caller identity established by the fronting proxy.
// Authentication itself happens upstream; the daemon trusts the header once
// the bearer token has been checked.
const headerUserID = "X-User-ID"

// requireAuth validates the static bearer token, when one is configured, and
// requires a well-formed caller identity on every request. The identity later
// becomes a path component under the library root, so anything that could
// traverse out of it is refused at the door.
func requireAuth(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeAuthError(w, "unauthorized")
				return
			}
		}
		if !services.ValidActorID(userID(r)) {
			writeAuthError(w, "missing or invalid caller identity")
			return
		}
		next(w, r)
	}
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerUserID))
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":{"code":"unauthorized","message":%q}}`+"\n", message)
}
