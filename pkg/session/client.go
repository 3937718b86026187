package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"

	"gcexport/pkg/errors"
	"gcexport/pkg/logger"
	"gcexport/pkg/ratelimit"
)

// Session is a cookie-carrying HTTP client shared by every request of one export run
type Session interface {
	Request(ctx context.Context, method, rawURL string, form url.Values, headers map[string]string) ([]byte, error)
	Get(ctx context.Context, rawURL string) ([]byte, error)
	PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error)
	Cookie(rawURL, name string) (string, bool)
	MarkAuthenticated()
	Authenticated() bool
}

// Options configures a Client
type Options struct {
	UserAgent string
	Timeout   time.Duration // zero means no timeout
	Limiter   ratelimit.Limiter
	Transport http.RoundTripper
}

// Client implements Session over net/http with a persistent cookie jar
type Client struct {
	httpClient    *http.Client
	jar           http.CookieJar
	userAgent     string
	limiter       ratelimit.Limiter
	logger        logger.Logger
	authenticated atomic.Bool
}

// NewClient creates a new session with an empty cookie jar
func NewClient(opts Options, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required")
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		jar:       jar,
		userAgent: opts.UserAgent,
		limiter:   opts.Limiter,
		logger:    log,
	}, nil
}

// Request performs one HTTP exchange and returns the response body.
// A non-nil form is sent url-encoded in the body. Redirects are followed;
// any final status outside 2xx yields a transport error carrying the code.
func (c *Client) Request(ctx context.Context, method, rawURL string, form url.Values, headers map[string]string) ([]byte, error) {
	if err := c.pace(ctx, rawURL); err != nil {
		return nil, err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.Transport(rawURL, 0, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).DebugWithFields("HTTP request failed", map[string]interface{}{
			"method": method,
		})
		return nil, errors.Transport(rawURL, 0, err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, method, rawURL, resp.StatusCode, time.Since(start))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, errors.Transport(rawURL, 0, fmt.Errorf("reading response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Transport(rawURL, resp.StatusCode, nil)
	}

	return buf.Bytes(), nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Request(ctx, http.MethodGet, rawURL, nil, nil)
}

// PostForm performs a POST with an url-encoded form body
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	if form == nil {
		form = url.Values{}
	}
	return c.Request(ctx, http.MethodPost, rawURL, form, nil)
}

// Cookie returns the value of the named cookie the jar would send to rawURL
func (c *Client) Cookie(rawURL, name string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

// MarkAuthenticated records a completed login handshake
func (c *Client) MarkAuthenticated() {
	c.authenticated.Store(true)
}

// Authenticated reports whether the login handshake completed
func (c *Client) Authenticated() bool {
	return c.authenticated.Load()
}

func (c *Client) pace(ctx context.Context, rawURL string) error {
	if c.limiter == nil || c.limiter.Allow() {
		return nil
	}
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	logger.LogRateLimit(c.logger, rawURL, time.Since(start))
	return nil
}
