// Package tap is a small client for IVOA Table Access Protocol services
// (SIMBAD, the Gaia archive). It sends synchronous ADQL queries and decodes
// the JSON table format both services return.
package tap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/litescript/ls-constellations/internal/logging"
	"github.com/litescript/ls-constellations/internal/version"
)

const (
	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 30 * time.Second

	// DefaultInterval is the politeness gap between requests to one service.
	DefaultInterval = 1500 * time.Millisecond

	// DefaultBackoff is the first retry delay; it doubles per attempt.
	DefaultBackoff = time.Second

	maxBodyBytes = 16 << 20
)

var (
	// ErrTransport wraps network failures and unexpected HTTP statuses.
	ErrTransport = errors.New("tap: transport failure")

	// ErrMalformedResponse wraps bodies that are not a TAP JSON table.
	ErrMalformedResponse = errors.New("tap: malformed response")

	// ErrCircuitOpen is returned without contacting the service while the
	// breaker is open after repeated failures.
	ErrCircuitOpen = errors.New("tap: circuit breaker is open")
)

// StatusError records a non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// QueryOptions are per-call settings.
type QueryOptions struct {
	// MaxRows caps the result size (MAXREC). Zero leaves it to the service.
	MaxRows int
}

// Client sends ADQL queries to one TAP service.
type Client struct {
	httpClient *http.Client
	url        string
	timeout    time.Duration
	userAgent  string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	backoff    time.Duration
	log        *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURL sets the service's synchronous endpoint, e.g.
// https://simbad.cds.unistra.fr/simbad/sim-tap/sync.
func WithURL(u string) Option {
	return func(c *Client) {
		c.url = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLimiter replaces the default pacing limiter. Share one limiter between
// clients that talk to the same service.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithBreaker routes every query through cb.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithMaxRetries sets how many times a 429/5xx or network failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a TAP client. Without WithURL it has no endpoint and
// every query fails.
func NewClient(opts ...Option) *Client {
	c := &Client{
		timeout:   DefaultTimeout,
		userAgent: version.UserAgent,
		limiter:   rate.NewLimiter(rate.Every(DefaultInterval), 1),
		backoff:   DefaultBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}
	if c.log == nil {
		c.log = logging.Discard()
	}

	return c
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.url
}

// Query runs adql and returns the decoded table. An empty table is not an
// error.
func (c *Client) Query(ctx context.Context, adql string, opts QueryOptions) (*Table, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: no service URL configured", ErrTransport)
	}

	start := time.Now()
	var (
		table *Table
		err   error
	)
	if c.breaker != nil {
		var res interface{}
		res, err = c.breaker.Execute(func() (interface{}, error) {
			return c.queryWithRetries(ctx, adql, opts)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.url)
		}
		if err == nil {
			table = res.(*Table)
		}
	} else {
		table, err = c.queryWithRetries(ctx, adql, opts)
	}
	if err != nil {
		return nil, err
	}

	c.log.Debug("%d rows in %s", table.Len(), time.Since(start).Round(time.Millisecond))
	return table, nil
}

func (c *Client) queryWithRetries(ctx context.Context, adql string, opts QueryOptions) (*Table, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1x, 2x, 4x...
			wait := c.backoff * time.Duration(1<<uint(i-1))
			c.log.Warn("retrying in %s after: %v", wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		table, err := c.do(ctx, adql, opts)
		if err == nil {
			return table, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var se *StatusError
		switch {
		case errors.As(err, &se) && se.retryable():
			lastErr = err
		case errors.Is(err, ErrTransport) && se == nil:
			lastErr = err
		default:
			return nil, err
		}
	}
	if c.maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, adql string, opts QueryOptions) (*Table, error) {
	form := url.Values{}
	form.Set("REQUEST", "doQuery")
	form.Set("LANG", "ADQL")
	form.Set("FORMAT", "json")
	form.Set("QUERY", adql)
	if opts.MaxRows > 0 {
		form.Set("MAXREC", strconv.Itoa(opts.MaxRows))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", ErrTransport, &StatusError{Code: resp.StatusCode, Body: snippet(body)})
	}

	table, err := decodeTable(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return table, nil
}

func decodeTable(body []byte) (*Table, error) {
	var raw struct {
		Metadata []Column            `json:"metadata"`
		Data     [][]json.RawMessage `json:"data"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if raw.Metadata == nil {
		return nil, errors.New("response has no metadata")
	}

	t := &Table{Columns: raw.Metadata, Rows: make([][]any, 0, len(raw.Data))}
	for i, row := range raw.Data {
		if len(row) != len(raw.Metadata) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(raw.Metadata))
		}
		cells := make([]any, len(row))
		for j, cell := range row {
			v, err := decodeCell(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, raw.Metadata[j].Name, err)
			}
			cells[j] = v
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// decodeCell keeps numbers as json.Number so large integer ids (Gaia
// source_id) survive without float rounding.
func decodeCell(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
