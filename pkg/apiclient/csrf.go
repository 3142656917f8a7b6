package apiclient

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const csrfHeader = "X-CSRF-Token"

// DoProtected executes a state-changing request with a CSRF token. The token is
// fetched on first use and cached; a 403 refreshes it and retries once.
func (c *Client) DoProtected(ctx context.Context, req Request) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "storefront api client not configured")
	}

	token, err := c.csrf(ctx, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(ctx, withCSRF(req, token))
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		return resp, err
	}

	token, err = c.csrf(ctx, true)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, withCSRF(req, token))
}

func (c *Client) csrf(ctx context.Context, refresh bool) (string, error) {
	c.csrfMu.Lock()
	defer c.csrfMu.Unlock()

	if c.csrfToken != "" && !refresh {
		return c.csrfToken, nil
	}

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: c.csrfPath, Endpoint: "csrf_token"})
	if err != nil {
		return "", err
	}
	var payload struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := resp.Decode(&payload); err != nil {
		return "", err
	}
	token := strings.TrimSpace(payload.CSRFToken)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeMalformedResponse, "csrf token missing from response")
	}
	c.csrfToken = token
	return token, nil
}

// ResetCSRF drops the cached token, e.g. after the session changes.
func (c *Client) ResetCSRF() {
	c.csrfMu.Lock()
	c.csrfToken = ""
	c.csrfMu.Unlock()
}

func withCSRF(req Request, token string) Request {
	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(csrfHeader, token)
	req.Header = header
	return req
}
