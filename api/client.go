// Package api is the typed HTTP client for the assistant service. It speaks
// JSON over HTTP, carries the CSRF token for non-safe methods, and exposes
// the raw three-outcome transport result for the envelope normalizer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// DefaultBasePath is the path prefix the service mounts its API under.
const DefaultBasePath = "/ai-assistant"

// csrfCookieName is the cookie the service issues its CSRF token in.
const csrfCookieName = "csrftoken"

// Result is the three-outcome transport contract: a parsed JSON body, a
// no-content stub, or a non-JSON body captured verbatim as text. Exactly one
// of JSON, NoContent, and NonJSON describes the body.
type Result struct {
	Status    int
	NoContent bool
	JSON      json.RawMessage
	NonJSON   bool
	Text      string
}

// Client calls the assistant service API.
type Client struct {
	serverURL string
	basePath  string
	http      *http.Client
}

// NormalizeBasePath enforces a leading slash and strips trailing slashes.
// Empty input falls back to DefaultBasePath.
func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultBasePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return DefaultBasePath
	}
	return p
}

// New creates a client for the service at serverURL with the given API base
// path. A nil httpClient gets a default with a cookie jar; a caller-supplied
// client without a jar gets one, since CSRF handling depends on cookies.
func New(serverURL, basePath string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err == nil {
			httpClient.Jar = jar
		}
	}
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		basePath:  NormalizeBasePath(basePath),
		http:      httpClient,
	}
}

func (c *Client) endpoint(path string) string {
	return c.serverURL + c.basePath + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) csrfToken() string {
	if c.http.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

// Do performs one request and maps the response onto the transport contract.
// It returns an error only for transport-level failures (dial, context,
// request construction); HTTP error statuses and non-JSON bodies come back
// as a Result for the normalizer to classify.
func (c *Client) Do(ctx context.Context, method, path string, body any) (Result, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), rd)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		if tok := c.csrfToken(); tok != "" {
			req.Header.Set("X-CSRFToken", tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return Result{Status: resp.StatusCode, NoContent: true}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading response: %w", err)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return Result{Status: resp.StatusCode, JSON: data}, nil
	}
	return Result{Status: resp.StatusCode, NonJSON: true, Text: string(data)}, nil
}
