package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sim-ashish/chat-service/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVerifyGroupAccess_Member(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify-group-access/7", r.URL.Path)
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":"a@x.com"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	email, err := c.VerifyGroupAccess(context.Background(), "tok123", 7)

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
}

func TestVerifyGroupAccess_NotMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.VerifyGroupAccess(context.Background(), "tok123", 7)

	assert.ErrorIs(t, err, errs.ErrNotGroupMember)
}

func TestVerifyGroupAccess_OtherStatusIsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.VerifyGroupAccess(context.Background(), "bad", 7)

	assert.ErrorIs(t, err, errs.ErrAuthFailed)
}

func TestVerifyGroupAccess_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before the call

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.VerifyGroupAccess(context.Background(), "tok123", 7)

	assert.ErrorIs(t, err, errs.ErrAuthUnavailable)
}

func TestVerifyGroupAccess_EmptyIdentityRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.VerifyGroupAccess(context.Background(), "tok123", 7)

	assert.ErrorIs(t, err, errs.ErrAuthFailed)
}
