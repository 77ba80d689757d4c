package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/config"
)

// LinkType selects the kind of action link GenerateLink produces.
type LinkType string

const (
	LinkMagicLink LinkType = "magiclink"
	LinkRecovery  LinkType = "recovery"
	LinkInvite    LinkType = "invite"
)

// Client talks to the credential store over HTTP.
type Client struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	jwtSecret      []byte
	httpClient     *http.Client
}

// ClientOption mutates a Client during construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the configured credential store.
func NewClient(cfg config.CredentialStoreConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:        cfg.AnonKey,
		serviceRoleKey: cfg.ServiceRoleKey,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate resolves an access token into an identity. Rejected tokens
// return ErrInvalidCredential; transport and 5xx failures return ErrUpstream.
func (c *Client) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, ErrInvalidCredential
	}
	if c.jwtSecret != nil {
		return verifyLocal(c.jwtSecret, accessToken)
	}

	var u user
	if err := c.do(ctx, http.MethodGet, "/user", nil, c.anonKey, accessToken, &u); err != nil {
		if errors.Is(err, ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: empty user", ErrInvalidCredential)
	}
	return u.identity(), nil
}

// SignOut revokes the provider session behind accessToken. Tokens the store
// no longer recognizes count as already signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, http.MethodPost, "/logout?scope=local", nil, c.anonKey, accessToken, nil)
	if err != nil && !errors.Is(err, errUnauthorized) && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// GetUserByEmail finds an identity by exact email.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*Identity, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))

	var page struct {
		Users []user `json:"users"`
	}
	path := "/admin/users?filter=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, c.serviceRoleKey, c.serviceRoleKey, &page); err != nil {
		return nil, err
	}
	// filter is a substring match
	for _, u := range page.Users {
		if strings.EqualFold(u.Email, email) {
			return u.identity(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, email)
}

// CreateUserInput describes a new identity.
type CreateUserInput struct {
	Email string
	Name  string
}

// CreateUser creates a confirmed identity. An existing email returns ErrConflict.
func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (*Identity, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"email":         strings.ToLower(strings.TrimSpace(in.Email)),
		"email_confirm": true,
	}
	if in.Name != "" {
		body["user_metadata"] = map[string]any{"full_name": in.Name}
	}

	var u user
	if err := c.do(ctx, http.MethodPost, "/admin/users", body, c.serviceRoleKey, c.serviceRoleKey, &u); err != nil {
		return nil, err
	}
	return u.identity(), nil
}

// UpdateUserEmail changes the identity's email without a confirmation round trip.
func (c *Client) UpdateUserEmail(ctx context.Context, userID, email string) (*Identity, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"email":         strings.ToLower(strings.TrimSpace(email)),
		"email_confirm": true,
	}

	var u user
	path := "/admin/users/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodPut, path, body, c.serviceRoleKey, c.serviceRoleKey, &u); err != nil {
		return nil, err
	}
	return u.identity(), nil
}

// GenerateLink returns an action link for the email without sending it.
func (c *Client) GenerateLink(ctx context.Context, linkType LinkType, email, redirectTo string) (string, error) {
	if err := c.requireAdmin(); err != nil {
		return "", err
	}
	body := map[string]any{
		"type":  string(linkType),
		"email": strings.ToLower(strings.TrimSpace(email)),
	}
	if redirectTo != "" {
		body["redirect_to"] = redirectTo
	}

	// Older servers return action_link at the top level, newer ones nest it.
	var resp struct {
		ActionLink string `json:"action_link"`
		Properties struct {
			ActionLink string `json:"action_link"`
		} `json:"properties"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/generate_link", body, c.serviceRoleKey, c.serviceRoleKey, &resp); err != nil {
		return "", err
	}
	if resp.Properties.ActionLink != "" {
		return resp.Properties.ActionLink, nil
	}
	if resp.ActionLink == "" {
		return "", fmt.Errorf("%w: generate_link returned no action_link", ErrUpstream)
	}
	return resp.ActionLink, nil
}

func (c *Client) requireAdmin() error {
	if c.serviceRoleKey == "" {
		return ErrNotConfigured
	}
	return nil
}

// errUnauthorized marks a 401/403 from the store. It never leaves the package.
var errUnauthorized = errors.New("unauthorized")

// apiError is the error body shape across GoTrue versions.
type apiError struct {
	Code      any    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
	ErrorDesc string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDesc, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// do performs one JSON request and maps the status code onto package errors.
func (c *Client) do(ctx context.Context, method, path string, in any, apiKey, bearer string, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)
	msg := apiErr.text()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", errUnauthorized, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode == http.StatusConflict, isEmailExists(resp.StatusCode, apiErr):
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	default:
		return fmt.Errorf("credential store %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
}

// isEmailExists recognizes the 422 GoTrue returns for duplicate emails.
func isEmailExists(status int, e apiError) bool {
	if status != http.StatusUnprocessableEntity {
		return false
	}
	if e.ErrorCode == "email_exists" || e.ErrorCode == "user_already_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(e.text()), "already been registered")
}
