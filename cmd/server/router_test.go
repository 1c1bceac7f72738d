package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/api"
	"github.com/phrazzld/studyloop/internal/api/middleware"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/mocks"
	"github.com/phrazzld/studyloop/internal/service"
	"github.com/phrazzld/studyloop/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResources struct {
	api.ResourceService
	listed int
}

func (s *stubResources) ListResources(_ context.Context, limit, offset int) ([]*domain.Resource, error) {
	s.listed++
	return nil, nil
}

type stubSessions struct {
	api.StudySessions
}

func (stubSessions) GetSession(_ context.Context, _ uuid.UUID) (*service.SessionResult, error) {
	return nil, service.ErrSessionNotFound
}

func newTestApp(t *testing.T) (*application, *stubResources) {
	t.Helper()

	jwt := &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			if token != "good" {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{Subject: "learner-1"}, nil
		},
		Token: "renewed",
	}
	resources := &stubResources{}
	return &application{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		jwtService: jwt,
		resources:  resources,
		sessions:   stubSessions{},
	}, resources
}

func serve(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterHealth(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)
	w := serve(t, app.setupRouter(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.TraceIDHeader))
}

func TestRouterRequiresToken(t *testing.T) {
	t.Parallel()

	app, resources := newTestApp(t)
	router := app.setupRouter()

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "list resources", method: http.MethodGet, path: "/api/resources"},
		{name: "submit resource", method: http.MethodPost, path: "/api/resources"},
		{name: "open session", method: http.MethodPost, path: "/api/sessions"},
		{name: "session action", method: http.MethodPost, path: "/api/sessions/" + uuid.NewString() + "/advance"},
		{name: "refresh", method: http.MethodPost, path: "/api/auth/refresh"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, router, tc.method, tc.path, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = serve(t, router, tc.method, tc.path, "forged")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Zero(t, resources.listed)
}

func TestRouterAuthenticatedRoutes(t *testing.T) {
	t.Parallel()

	app, resources := newTestApp(t)
	router := app.setupRouter()

	w := serve(t, router, http.MethodGet, "/api/resources?limit=10", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resources.listed)

	var list api.ListResponse[*domain.Resource]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Empty(t, list.Items)
	assert.Equal(t, 10, list.Limit)

	w = serve(t, router, http.MethodGet, "/api/sessions/"+uuid.NewString(), "good")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, router, http.MethodGet, "/api/sessions/not-a-uuid", "good")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, router, http.MethodPost, "/api/auth/refresh", "good")
	require.Equal(t, http.StatusOK, w.Code)
	var token api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&token))
	assert.Equal(t, api.TokenResponse{Token: "renewed", Subject: "learner-1"}, token)
}
