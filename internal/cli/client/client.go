package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/quantrack/quantrack/internal/cli/auth"
)

// RequestIDHeader carries a per-request ULID for log correlation
const RequestIDHeader = "X-Request-ID"

// Client represents an HTTP client for the Quantrack API
type Client struct {
	baseURL      string
	httpClient   *http.Client
	jar          http.CookieJar
	tokens       auth.TokenStore
	validate     *validator.Validate
	logger       zerolog.Logger
	timeout      time.Duration
	credentialed bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTokenStore sets the store the bearer token is read from on every request
func WithTokenStore(store auth.TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// WithCookieJar sets the jar used for the session cookie transport
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.jar = jar }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout sets an overall per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithoutCredentials disables both the cookie jar and the bearer token
func WithoutCredentials() Option {
	return func(c *Client) { c.credentialed = false }
}

// New creates a new API client for the given base URL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{},
		validate:     newValidator(),
		logger:       zerolog.Nop(),
		credentialed: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Work on a copy so the caller's client is not mutated
	hc := *c.httpClient
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	if c.credentialed {
		if c.jar != nil {
			hc.Jar = c.jar
		}
	} else {
		hc.Jar = nil
	}
	c.httpClient = &hc

	return c, nil
}

// BaseURL returns the API base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Blob is a binary response body
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Do sends a JSON request and decodes a 2xx response into out (when non-nil)
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	_, data, err := c.send(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{
			Kind:    KindUnexpected,
			Message: "invalid response from server",
			Err:     fmt.Errorf("failed to decode response: %w", err),
		}
	}

	if err := c.checkSchema(out); err != nil {
		return &APIError{
			Kind:    KindUnexpected,
			Message: "unexpected response shape from server",
			Err:     err,
		}
	}

	return nil
}

// Download sends a request and returns the raw response body
func (c *Client) Download(ctx context.Context, method, path string, body any) (*Blob, error) {
	resp, data, err := c.send(ctx, method, path, body, "*/*")
	if err != nil {
		return nil, err
	}

	blob := &Blob{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			blob.Filename = params["filename"]
		}
	}
	return blob, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) send(ctx context.Context, method, path string, body any, accept string) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, nil, &APIError{
				Kind:    KindUnexpected,
				Message: "failed to encode request",
				Err:     fmt.Errorf("failed to marshal request: %w", err),
			}
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, nil, &APIError{
			Kind:    KindUnexpected,
			Message: "failed to create request",
			Err:     err,
		}
	}

	requestID := ulid.Make().String()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachToken(req)

	log := c.logger.With().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Logger()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Request failed without a response")
		return nil, nil, &APIError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &APIError{Kind: KindNetwork, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError(resp.StatusCode, data)
		if apiErr.Kind == KindUnauthorized {
			log.Warn().Str("error", apiErr.Message).Msg("Unauthorized response")
		}
		return resp, data, apiErr
	}

	return resp, data, nil
}

// attachToken sets the bearer header when a credential is stored
func (c *Client) attachToken(req *http.Request) {
	if !c.credentialed || c.tokens == nil {
		return
	}

	token, err := c.tokens.LoadToken(c.baseURL)
	if err != nil {
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			c.logger.Warn().Err(err).Msg("Failed to load stored token")
		}
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkSchema validates decoded structs (and slices of structs) against
// their validate tags
func (c *Client) checkSchema(out any) error {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return c.validate.Struct(v.Interface())
	case reflect.Slice:
		if v.Type().Elem().Kind() != reflect.Struct {
			return nil
		}
		return c.validate.Var(v.Interface(), "dive")
	default:
		return nil
	}
}
