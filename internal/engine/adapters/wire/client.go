package wire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// StatusError is a non-2xx reply.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Path, e.Status, e.Body)
}

// Client is a small JSON-over-HTTP client.
type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
}

func NewClient(baseURL string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		headers: headers,
	}
}

// Raw performs the request and returns the body of a 2xx reply.
func (c *Client) Raw(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		buf, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Path: path, Status: resp.StatusCode, Body: truncate(string(raw), 256)}
	}
	return raw, nil
}

// Do performs the request and decodes a JSON reply into out.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	raw, err := c.Raw(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
