package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/powderlines/powderlines/internal/api/middleware"
)

func adminProtected(secret string) http.Handler {
	return middleware.AdminKey(secret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAdminKey_AllowsMatchingKey(t *testing.T) {
	handler := adminProtected("s3cret")

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/1", http.NoBody)
	req.Header.Set("X-Admin-API-Key", "s3cret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminKey_RejectsWrongKey(t *testing.T) {
	handler := adminProtected("s3cret")

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/1", http.NoBody)
	req.Header.Set("X-Admin-API-Key", "wrong")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or missing admin key")
}

func TestAdminKey_RejectsMissingHeader(t *testing.T) {
	handler := adminProtected("s3cret")

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/1", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminKey_EmptySecretRejectsEverything(t *testing.T) {
	handler := adminProtected("")

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/1", http.NoBody)
	req.Header.Set("X-Admin-API-Key", "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
