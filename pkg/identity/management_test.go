package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagementClientDeleteUser(t *testing.T) {
	var tokenCalls, deleteCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/oauth/token":
			tokenCalls.Add(1)
			_, _ = w.Write([]byte(`{"access_token":"mgmt","expires_in":86400}`))
		case r.Method == http.MethodDelete:
			deleteCalls.Add(1)
			assert.Equal(t, "Bearer mgmt", r.Header.Get("Authorization"))
			assert.Equal(t, "/api/v2/users/auth0|alice", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewManagementClient(srv.URL, "id", "secret", "aud", time.Second)
	ctx := context.Background()
	require.NoError(t, c.DeleteUser(ctx, "auth0|alice"))
	require.NoError(t, c.DeleteUser(ctx, "auth0|alice"))

	assert.Equal(t, int32(1), tokenCalls.Load())
	assert.Equal(t, int32(2), deleteCalls.Load())
}

func TestManagementClientSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			_, _ = w.Write([]byte(`{"access_token":"mgmt","expires_in":86400}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewManagementClient(srv.URL, "id", "secret", "aud", time.Second).DeleteUser(context.Background(), "auth0|alice")
	assert.Error(t, err)
}
