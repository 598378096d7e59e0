// Package identity talks to a hosted GoTrue-compatible authentication service.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/grades-calculator-api/pkg/config"
)

var (
	// ErrEmailExists is returned when the provider already has an account for the email.
	ErrEmailExists = errors.New("identity: email already registered")
	// ErrInvalidCredentials is returned when a password grant is rejected.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// APIError is a non-success provider response that does not map to a sentinel.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider returned %d %s: %s", e.Status, e.Code, e.Message)
}

// User is the subset of the provider user object the API relies on.
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// CreateUserRequest registers a confirmed account through the admin API.
type CreateUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type errorBody struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
	Msg              string      `json:"msg"`
	Message          string      `json:"message"`
}

// Client wraps the provider's admin and token endpoints.
type Client struct {
	http       *resty.Client
	serviceKey string
}

// New builds a client. It returns nil when no provider URL is configured.
func New(cfg config.IdentityConfig) *Client {
	if cfg.URL == "" {
		return nil
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("apikey", cfg.ServiceKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	return &Client{http: httpClient, serviceKey: cfg.ServiceKey}
}

// CreateUser registers an account and returns the provider user.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var user User
	var failure errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.serviceKey).
		SetBody(req).
		SetResult(&user).
		SetError(&failure).
		Post("/auth/v1/admin/users")
	if err != nil {
		return nil, fmt.Errorf("create identity user: %w", err)
	}
	if resp.IsError() {
		if isEmailExists(resp.StatusCode(), failure) {
			return nil, ErrEmailExists
		}
		return nil, failure.toAPIError(resp.StatusCode())
	}
	if user.ID == "" {
		return nil, &APIError{Status: resp.StatusCode(), Code: "empty_user", Message: "provider returned no user id"}
	}
	return &user, nil
}

// SignInWithPassword verifies credentials with the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	var token tokenResponse
	var failure errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&token).
		SetError(&failure).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("identity password grant: %w", err)
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, failure.toAPIError(resp.StatusCode())
	}
	return &token.User, nil
}

func isEmailExists(status int, body errorBody) bool {
	if body.ErrorCode == "email_exists" || body.ErrorCode == "user_already_exists" {
		return true
	}
	if status != http.StatusUnprocessableEntity && status != http.StatusConflict {
		return false
	}
	return strings.Contains(strings.ToLower(body.message()), "already")
}

func (b errorBody) message() string {
	for _, m := range []string{b.Msg, b.ErrorDescription, b.Message, b.Error} {
		if m != "" {
			return m
		}
	}
	return http.StatusText(http.StatusInternalServerError)
}

func (b errorBody) toAPIError(status int) *APIError {
	code := b.ErrorCode
	if code == "" {
		code = b.Error
	}
	return &APIError{Status: status, Code: code, Message: b.message()}
}
