package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"health-sync/core/retry"
)

// maxBodyBytes caps how much of a response we read. Provider payloads are
// small; anything past this is a broken endpoint, not data.
const maxBodyBytes = 8 << 20

// HTTPClient is the shared transport for provider strategies. Every request
// goes through the retry layer so transient upstream failures never abort a
// run on the first error.
type HTTPClient struct {
	http  *http.Client
	log   *zap.Logger
	retry retry.Options
}

// NewHTTPClient builds a client with strict per-phase timeouts.
func NewHTTPClient(log *zap.Logger, timeoutSeconds int, opts retry.Options) *HTTPClient {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	timeout := time.Duration(timeoutSeconds) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &HTTPClient{
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		log:   log,
		retry: opts,
	}
}

// GetJSON fetches url with the given headers and decodes the body into out.
// Query parameters belong in the url. A non-2xx status is returned as a
// retry.StatusError carrying the truncated body.
func (c *HTTPClient) GetJSON(ctx context.Context, label, rawURL string, headers map[string]string, out any) error {
	body, err := retry.Do(ctx, c.log, label, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.do(req)
	})
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PostForm sends an application/x-www-form-urlencoded POST and decodes the
// JSON response into out.
func (c *HTTPClient) PostForm(ctx context.Context, label, rawURL string, headers map[string]string, form url.Values, out any) error {
	payload := form.Encode()
	body, err := retry.Do(ctx, c.log, label, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.do(req)
	})
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PostJSON sends a JSON body and decodes the JSON response into out.
func (c *HTTPClient) PostJSON(ctx context.Context, label, rawURL string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	body, err := retry.Do(ctx, c.log, label, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(string(payload)))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.do(req)
	})
	if err != nil {
		return err
	}
	return decode(body, out)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.StatusError{
			Status: resp.StatusCode,
			URL:    req.URL.String(),
			Body:   snippet(body),
		}
	}
	return body, nil
}

// IsNotFound reports whether err is an HTTP 404. Some providers answer 404
// for days without data; callers map that to an empty result.
func IsNotFound(err error) bool {
	var se *retry.StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

func decode(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// snippet truncates a response body for error messages and logs.
func snippet(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
