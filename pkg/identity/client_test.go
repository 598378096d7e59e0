package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grades-calculator-api/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.IdentityConfig{URL: srv.URL + "/", ServiceKey: "service-key", Timeout: time.Second})
}

func TestNewWithoutURLIsDisabled(t *testing.T) {
	assert.Nil(t, New(config.IdentityConfig{}))
}

func TestCreateUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var body CreateUserRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body.Email)
		assert.True(t, body.EmailConfirm)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"0b6f0a4e-2f0a-4c55-9d4e-7b1f2a3c4d5e","email":"ana@example.com"}`))
	})

	user, err := client.CreateUser(context.Background(), CreateUserRequest{Email: "ana@example.com", Password: "secret1", EmailConfirm: true})
	require.NoError(t, err)
	assert.Equal(t, "0b6f0a4e-2f0a-4c55-9d4e-7b1f2a3c4d5e", user.ID)
}

func TestCreateUserEmailExists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"error_code":"email_exists","msg":"A user with this email address has already been registered"}`))
	})

	_, err := client.CreateUser(context.Background(), CreateUserRequest{Email: "ana@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCreateUserProviderFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	})

	_, err := client.CreateUser(context.Background(), CreateUserRequest{Email: "ana@example.com", Password: "secret1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "maintenance", apiErr.Message)
}

func TestSignInWithPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"u-1","email":"ana@example.com"}}`))
	})

	user, err := client.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
}

func TestSignInWithPasswordRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := client.SignInWithPassword(context.Background(), "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
