package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultTimeout              = 15 * time.Second
	defaultCSRFPath             = "/api/csrf-token"
	defaultUserAgent            = "storefront-client"
	errorBodyReadLimit    int64 = 4096
	responseBodyReadLimit int64 = 16 << 20
)

var errBaseURLRequired = errors.New("storefront api base url is required")

// TokenSource supplies the bearer token for authenticated requests. An empty
// token means the request goes out anonymous.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, error)
}

// Client talks to the storefront REST API.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	baseURL    string
	userAgent  string
	csrfPath   string
	tokens     TokenSource
	metrics    *metrics.ClientMetrics
	logg       *logger.Logger

	csrfMu    sync.Mutex
	csrfToken string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout. It also applies to a client
// supplied with WithHTTPClient, in either option order; that client is copied
// rather than modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(agent); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// WithCSRFPath overrides the endpoint that issues CSRF tokens.
func WithCSRFPath(path string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			c.csrfPath = trimmed
		}
	}
}

// NewClient builds a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	jar, _ := cookiejar.New(nil)
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
		baseURL:    trimmed,
		userAgent:  defaultUserAgent,
		csrfPath:   defaultCSRFPath,
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.timeout > 0 && client.httpClient.Timeout != client.timeout {
		hc := *client.httpClient
		hc.Timeout = client.timeout
		client.httpClient = &hc
	}
	return client, nil
}

// Request describes one call to the API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Endpoint labels the request in metrics and logs; defaults to Path.
	Endpoint string
	Header   http.Header
}

// Response is a fully read 2xx response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return pkgerrors.New(pkgerrors.CodeMalformedResponse, "empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeMalformedResponse, err, "decode response")
	}
	return nil
}

// Do executes req. Non-2xx responses are returned as typed errors carrying the
// upstream status; transport failures are DEPENDENCY_ERROR.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "storefront api client not configured")
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Path
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	requestID := httpReq.Header.Get(RequestIDHeader)
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"endpoint":   endpoint,
		"method":     httpReq.Method,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, 0, time.Since(start))
		c.logg.WarnErr(logCtx, "storefront api request failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", httpReq.Method, endpoint))
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		apiErr := pkgerrors.FromStatus(resp.StatusCode, upstreamMessage(resp.StatusCode, body))
		c.logg.Debug(c.logg.WithField(logCtx, "status", resp.StatusCode), "storefront api returned an error status")
		return nil, apiErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response body")
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// RequestIDHeader carries the correlation id on every outgoing call.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// WithRequestID makes calls issued under ctx reuse id instead of minting one,
// so a shell request and the backend calls it triggers share an id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.buildURL(req.Path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode request body")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(RequestIDHeader, requestIDFrom(ctx))
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.BearerToken(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session token")
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

func (c *Client) buildURL(path string) string {
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, path)
}

// upstreamMessage pulls a human readable message out of an error body.
func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
		switch v := payload.Error.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && strings.TrimSpace(msg) != "" {
				return strings.TrimSpace(msg)
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return fmt.Sprintf("storefront api returned %d %s", status, http.StatusText(status))
}
