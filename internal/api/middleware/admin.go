package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/powderlines/powderlines/internal/api/models"
)

// AdminKey creates middleware that guards admin endpoints with a static
// X-Admin-API-Key header compare. An empty secret disables the admin
// surface entirely; every request is rejected.
func AdminKey(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Admin-API-Key")
			if secret == "" || key == "" ||
				subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				models.ErrorBody{Error: models.MsgUnauthorized}.Write(w, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
