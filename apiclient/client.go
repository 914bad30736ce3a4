// Package apiclient talks to the remote authentication API. Non-2xx
// responses are returned as *Error with the body already parsed.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// DefaultAuthScheme is the Authorization scheme the remote API expects
	DefaultAuthScheme = "JWT"
	defaultUserAgent  = "shopctl"
	maxResponseBytes  = 1 << 20
	requestIDHeader   = "X-Request-ID"
)

// Client is an HTTP client for the remote authentication API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authScheme string
	userAgent  string
	logger     zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAuthScheme sets the Authorization header scheme (default "JWT")
func WithAuthScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.authScheme = scheme
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[apiclient.New] invalid base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("[apiclient.New] unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		authScheme: DefaultAuthScheme,
		userAgent:  defaultUserAgent,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Credentials identify a user at login. IdentifierField names the login
// field the server expects and defaults to "email".
type Credentials struct {
	IdentifierField string
	Identifier      string
	Password        string
}

func (c Credentials) MarshalJSON() ([]byte, error) {
	field := c.IdentifierField
	if field == "" {
		field = "email"
	}
	return json.Marshal(map[string]string{
		field:      c.Identifier,
		"password": c.Password,
	})
}

// SetPasswordRequest is the body of /auth/users/set_password/
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ReNewPassword   string `json:"re_new_password,omitempty"`
}

// ActivationRequest carries the uid/token pair from an activation link
type ActivationRequest struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// ResetPasswordConfirmRequest carries the uid/token pair from a reset link
// and the new password twice.
type ResetPasswordConfirmRequest struct {
	UID           string `json:"uid"`
	Token         string `json:"token"`
	NewPassword   string `json:"new_password"`
	ReNewPassword string `json:"re_new_password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// CreateToken exchanges credentials for a token pair
func (c *Client) CreateToken(ctx context.Context, creds Credentials) (token.Pair, error) {
	var pair token.Pair
	if err := c.do(ctx, http.MethodPost, RouteJWTCreate, "", creds, &pair); err != nil {
		return token.Pair{}, err
	}
	if !pair.Valid() {
		return token.Pair{}, errors.New("[apiclient.CreateToken] response has no access token")
	}
	return pair, nil
}

// RefreshToken exchanges a refresh token for a new access token. Refresh in
// the returned pair is empty unless the server rotates refresh tokens.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (token.Pair, error) {
	var pair token.Pair
	if err := c.do(ctx, http.MethodPost, RouteJWTRefresh, "", refreshRequest{Refresh: refresh}, &pair); err != nil {
		return token.Pair{}, err
	}
	if !pair.Valid() {
		return token.Pair{}, errors.New("[apiclient.RefreshToken] response has no access token")
	}
	return pair, nil
}

// Me fetches the profile of the user owning access
func (c *Client) Me(ctx context.Context, access string) (map[string]any, error) {
	profile := map[string]any{}
	if err := c.do(ctx, http.MethodGet, RouteMe, access, nil, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateMe sends a partial profile update
func (c *Client) UpdateMe(ctx context.Context, access string, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, RouteMeUpdate, access, fields, nil)
}

func (c *Client) SetPassword(ctx context.Context, access string, req SetPasswordRequest) error {
	return c.do(ctx, http.MethodPost, RouteSetPassword, access, req, nil)
}

// RegisterUser creates an account pending activation
func (c *Client) RegisterUser(ctx context.Context, fields map[string]any) error {
	return c.do(ctx, http.MethodPost, RouteUsers, "", fields, nil)
}

func (c *Client) Activate(ctx context.Context, req ActivationRequest) error {
	return c.do(ctx, http.MethodPost, RouteActivation, "", req, nil)
}

func (c *Client) ResendActivation(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, RouteResendActivation, "", emailRequest{Email: email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, RouteResetPassword, "", emailRequest{Email: email}, nil)
}

func (c *Client) ResetPasswordConfirm(ctx context.Context, req ResetPasswordConfirmRequest) error {
	return c.do(ctx, http.MethodPost, RouteResetPasswordConfirm, "", req, nil)
}

// do sends one request. A non-empty access token is attached with the
// configured scheme. Non-2xx responses come back as *Error.
func (c *Client) do(ctx context.Context, method, path, access string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[apiclient] marshal %s %s", method, path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "[apiclient] new request %s %s", method, path)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.httpClient
	if access != "" {
		client = c.authorised(access)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", requestID).Str("method", method).Str("path", path).Msg("API request failed")
		return errors.Wrapf(err, "[apiclient] %s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrapf(err, "[apiclient] read %s %s", method, path)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "[apiclient] decode %s %s", method, path)
	}
	return nil
}

// authorised returns a client that attaches access to every request
func (c *Client) authorised(access string) *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access, TokenType: c.authScheme}),
			Base:   base,
		},
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
		Timeout:       c.httpClient.Timeout,
	}
}
