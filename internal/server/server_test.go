package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/authn"
	"github.com/authgate/authgate/internal/password"
	"github.com/authgate/authgate/internal/ratelimit"
	"github.com/authgate/authgate/internal/server"
	"github.com/authgate/authgate/internal/userstore"
	"github.com/authgate/authgate/pkg/models"
	"github.com/authgate/authgate/pkg/validation"
)

// stubAuth lets handler tests script the service outcome directly.
type stubAuth struct {
	user *models.PublicUser
	err  error
}

func (s *stubAuth) Authenticate(_ context.Context, _, _, _ string) (*models.PublicUser, error) {
	return s.user, s.err
}

func (s *stubAuth) Register(_ context.Context, _ *models.RegisterRequest) (*models.PublicUser, error) {
	return s.user, s.err
}

func newTestServer(auth authn.AuthService) *server.Server {
	return server.New(zap.NewNop(), auth, gin.TestMode)
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubAuth{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	srv := newTestServer(&stubAuth{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "authgate_login_attempts_total")
}

func TestLoginSuccess(t *testing.T) {
	srv := newTestServer(&stubAuth{user: &models.PublicUser{Email: "alice@example.com"}})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice@example.com", resp.User.Email)
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := newTestServer(&stubAuth{err: authn.ErrInvalidCredentials})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())
}

func TestLoginMalformedBodyIsUniform(t *testing.T) {
	srv := newTestServer(&stubAuth{err: authn.ErrInvalidCredentials})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// Same status and body as a wrong password.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())
}

func TestLoginRateLimited(t *testing.T) {
	srv := newTestServer(&stubAuth{err: &authn.RateLimitedError{RetryAfter: 30 * time.Minute}})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Email:    "alice@example.com",
		Password: "whatever",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))

	var resp struct {
		RetryAfterSeconds int `json:"retry_after_seconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1800, resp.RetryAfterSeconds)
}

func TestLoginInternalError(t *testing.T) {
	srv := newTestServer(&stubAuth{err: errors.New("store unreachable")})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Email:    "alice@example.com",
		Password: "whatever",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "store unreachable")
}

func TestRegisterOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate", authn.ErrAccountExists, http.StatusConflict},
		{"rejected", &authn.RejectedError{Reason: errors.New("password is too common")}, http.StatusBadRequest},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuth{err: tc.err}
			if tc.err == nil {
				stub.user = &models.PublicUser{Email: "bob@example.com"}
			}
			srv := newTestServer(stub)

			rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
				Email:    "bob@example.com",
				Username: "bob42",
				Password: "a sufficiently long passphrase",
			})
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

// Full wiring over an in-memory database: register, lock the client out
// with wrong passwords, observe 429, then log in once the block lapses.
func TestEndToEndLockoutOverHTTP(t *testing.T) {
	logger := zap.NewNop()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	users := userstore.New(logger, db)
	require.NoError(t, users.AutoMigrate())

	clockNow := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewWithClock(ratelimit.NewMemoryStore(), ratelimit.DefaultConfig(),
		func() time.Time { return clockNow })

	svc := authn.NewService(logger, users,
		password.NewHasher(logger, 4), limiter,
		password.NewPolicy(8), validation.NewValidator(logger))
	srv := server.New(logger, svc, gin.TestMode)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
		Email:    "eve@example.com",
		Username: "eve",
		Password: "a sufficiently long passphrase",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	for i := 0; i < 5; i++ {
		rec = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
			Email:    "eve@example.com",
			Password: "wrong password",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, fmt.Sprintf("attempt %d", i+1))
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Email:    "eve@example.com",
		Password: "a sufficiently long passphrase",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))

	clockNow = clockNow.Add(1801 * time.Second)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Email:    "eve@example.com",
		Password: "a sufficiently long passphrase",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, limiter.Size())
}
