package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andsokolov/taskdeck/internal/models"
	"github.com/andsokolov/taskdeck/internal/server/handlers"
	"github.com/andsokolov/taskdeck/internal/token"
)

func testIssuer(t *testing.T) *token.Issuer {
	t.Helper()

	issuer, err := token.NewIssuer(token.Config{
		Secret:          []byte("test-secret-key-for-unit-tests"),
		Issuer:          "taskdeck",
		Audience:        "taskdeck-api",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	return issuer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authProtected(t *testing.T, issuer *token.Issuer) (http.Handler, *string) {
	t.Helper()

	var seenUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := handlers.UserIDFromContext(r.Context())
		seenUserID = userID
		w.WriteHeader(http.StatusOK)
	})

	return AuthMiddleware(testLogger(), issuer)(next), &seenUserID
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	issuer := testIssuer(t)
	handler, seenUserID := authProtected(t, issuer)

	user := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	tokenString, _, err := issuer.IssueAccessToken(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", *seenUserID)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	handler, _ := authProtected(t, testIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_BadFormat(t *testing.T) {
	handler, _ := authProtected(t, testIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler, _ := authProtected(t, testIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	expiredIssuer, err := token.NewIssuer(token.Config{
		Secret:          []byte("test-secret-key-for-unit-tests"),
		Issuer:          "taskdeck",
		Audience:        "taskdeck-api",
		AccessTokenTTL:  -time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	user := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	tokenString, _, err := expiredIssuer.IssueAccessToken(user)
	require.NoError(t, err)

	handler, _ := authProtected(t, testIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
