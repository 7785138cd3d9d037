// Package lookup issues the remote code-to-metadata request against the
// catalog service and normalizes its response into a Result.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/readshelf/shelfscan/internal/barcode"
)

const (
	// CSRFCookieName is the same-origin anti-forgery cookie the catalog
	// service sets on authenticated sessions.
	CSRFCookieName = "csrftoken"
	// CSRFHeaderName carries the echoed token on mutating calls.
	CSRFHeaderName = "X-CSRFToken"

	defaultLookupPath = "/library/api/barcode-lookup/"
	defaultImagePath  = "/library/api/fetch-image/"
)

// Error is the single failure signal a lookup surfaces: either the
// server-provided message or the generic "lookup failed" marker.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "lookup failed"
}

// Client talks to the catalog lookup endpoints.
type Client struct {
	BaseURL    string
	LookupPath string
	ImagePath  string
	httpClient *http.Client
}

// NewClient creates a lookup client for the given catalog base URL. The
// client keeps a cookie jar so the anti-forgery cookie set by the service is
// echoed back on subsequent calls. Lookups carry no client-side timeout;
// cancellation is the caller's context.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL:    baseURL,
		LookupPath: defaultLookupPath,
		ImagePath:  defaultImagePath,
		httpClient: &http.Client{Jar: jar},
	}
}

// Lookup performs one round trip for the normalized code. A 2xx body that
// fails to parse is treated as an empty Result, not an error, so downstream
// sees OK falsy. Non-2xx and transport failures come back as *Error.
func (c *Client) Lookup(ctx context.Context, code barcode.Code) (*Result, error) {
	if code.IsZero() {
		return nil, &Error{Message: "empty code"}
	}

	body, err := c.postJSON(ctx, c.LookupPath, map[string]string{"code": code.String()})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{Message: "lookup failed"}
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		slog.Debug("Lookup response did not parse, treating as no match", "err", err)
		return &Result{}, nil
	}
	return &result, nil
}

// FetchImage asks the catalog service to retrieve a cover image server-side,
// bypassing cross-origin restrictions the client would otherwise hit. It
// returns the binary image data and its content type.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	payload, err := json.Marshal(map[string]string{"url": imageURL})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+c.ImagePath, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCSRFHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// postJSON issues a mutating call and interprets the status line. On non-2xx
// it drains the body for a server {error} message and wraps it as *Error.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Message: "lookup failed"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Message: "lookup failed"}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.setCSRFHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("Lookup request failed", "path", path, "err", err)
		return nil, &Error{Message: "lookup failed"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var serverErr struct {
			Error string `json:"error"`
		}
		if body, err := io.ReadAll(resp.Body); err == nil {
			// Body parse failures fall through to the generic message.
			_ = json.Unmarshal(body, &serverErr)
		}
		return nil, &Error{Message: serverErr.Error, Status: resp.StatusCode}
	}
	return resp.Body, nil
}

// setCSRFHeader echoes the anti-forgery cookie as a header when the jar has
// one. A missing cookie just means the header is omitted.
func (c *Client) setCSRFHeader(req *http.Request) {
	base, err := url.Parse(c.BaseURL)
	if err != nil || c.httpClient.Jar == nil {
		return
	}
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == CSRFCookieName && cookie.Value != "" {
			req.Header.Set(CSRFHeaderName, cookie.Value)
			return
		}
	}
}
