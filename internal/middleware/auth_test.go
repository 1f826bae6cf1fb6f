package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/laundryhub/internal/model"
)

type stubUsers struct {
	users map[int64]*model.User
	err   error
}

func (s *stubUsers) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return u, nil
}

func newTestAuth(users ...*model.User) *AuthMiddleware {
	stub := &stubUsers{users: make(map[int64]*model.User)}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return NewAuthMiddleware("test-secret", time.Hour, stub)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	m := newTestAuth(&model.User{ID: 42, Name: "Ann", Role: model.RoleUser})

	token, err := m.IssueToken(42)
	require.NoError(t, err)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(42), user.ID)
		assert.Equal(t, model.RoleUser, user.Role)
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	m.Middleware(next).ServeHTTP(w, r)

	assert.True(t, nextCalled)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := newTestAuth(&model.User{ID: 1, Role: model.RoleUser})

	valid, err := m.IssueToken(1)
	require.NoError(t, err)
	deleted, err := m.IssueToken(7)
	require.NoError(t, err)

	other := NewAuthMiddleware("other-secret", time.Hour, &stubUsers{})
	foreign, err := other.IssueToken(1)
	require.NoError(t, err)

	expiredIssuer := newTestAuth()
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.IssueToken(1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", header: "", want: "No token, authorization denied"},
		{name: "not bearer", header: "Basic " + valid, want: "No token, authorization denied"},
		{name: "empty bearer", header: "Bearer ", want: "No token, authorization denied"},
		{name: "garbage", header: "Bearer not-a-jwt", want: "Token is not valid"},
		{name: "wrong secret", header: "Bearer " + foreign, want: "Token is not valid"},
		{name: "expired", header: "Bearer " + expired, want: "Token is not valid"},
		{name: "deleted user", header: "Bearer " + deleted, want: "Token is not valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			m.Middleware(next).ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"msg":"`+tt.want+`"}`, w.Body.String())
		})
	}
}

func TestAuthMiddleware_LookupFailure(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, &stubUsers{err: errors.New("db down")})
	token, err := m.IssueToken(1)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	m.Middleware(http.NotFoundHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestParseToken(t *testing.T) {
	m := newTestAuth()

	token, err := m.IssueToken(99)
	require.NoError(t, err)

	id, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	_, err = m.ParseToken(token + "x")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		user    *model.User
		allowed []model.Role
		want    int
	}{
		{name: "admin allowed", user: &model.User{ID: 1, Role: model.RoleAdmin}, allowed: []model.Role{model.RoleAdmin}, want: http.StatusOK},
		{name: "provider on provider route", user: &model.User{ID: 2, Role: model.RoleServiceProvider}, allowed: []model.Role{model.RoleServiceProvider, model.RoleAdmin}, want: http.StatusOK},
		{name: "user on admin route", user: &model.User{ID: 3, Role: model.RoleUser}, allowed: []model.Role{model.RoleAdmin}, want: http.StatusForbidden},
		{name: "provider on admin route", user: &model.User{ID: 4, Role: model.RoleServiceProvider}, allowed: []model.Role{model.RoleAdmin}, want: http.StatusForbidden},
		{name: "no user", user: nil, allowed: []model.Role{model.RoleUser}, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			r := httptest.NewRequest(http.MethodGet, "/restricted", nil)
			if tt.user != nil {
				r = r.WithContext(WithUser(r.Context(), tt.user))
			}
			w := httptest.NewRecorder()

			RequireRole(tt.allowed...)(next).ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}
