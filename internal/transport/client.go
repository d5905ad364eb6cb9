// Package transport is the JSON-over-HTTP collaborator used by the remote
// repositories. It performs exactly one request per Call and never retries.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/errs"
)

// RequestIDHeader carries a per-call id for correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

// TokenSource yields the current bearer token. A missing token is reported
// as errs.ErrNotFound and results in an unauthenticated request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client issues API calls against a base URL.
type Client struct {
	base   string
	hc     *http.Client
	tokens TokenSource
	log    *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithTokens attaches bearer tokens from ts to every request.
func WithTokens(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for baseURL with the given timeout per call.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Call sends body (JSON-encoded when non-nil) and decodes the response with
// numbers kept as json.Number. A non-2xx status yields *errs.StatusError; an
// empty success body yields nil. Transport errors are returned unwrapped
// enough for errs.Classify to recognize them.
func (c *Client) Call(ctx context.Context, method, path string, body any) (any, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rid := newRequestID()
	req.Header.Set(RequestIDHeader, rid)

	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		switch {
		case err == nil && tok != "":
			req.Header.Set("Authorization", "Bearer "+tok)
		case err != nil && !errors.Is(err, errs.ErrNotFound):
			return nil, fmt.Errorf("read token: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("api call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", rid),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", rid),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errs.StatusError{Code: resp.StatusCode, Reason: reason(raw, resp.StatusCode)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	v, err := decode(raw)
	if err != nil {
		// %v: a truncated body must not look like a connectivity failure
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformed, err)
	}
	return v, nil
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// reason extracts the server-supplied message from an error body.
func reason(raw []byte, code int) string {
	if v, err := decode(raw); err == nil {
		if m, ok := v.(map[string]any); ok {
			for _, k := range []string{"message", "error"} {
				if s, ok := m[k].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) <= 200 && !strings.HasPrefix(s, "<") && !strings.HasPrefix(s, "{") {
		return s
	}
	return http.StatusText(code)
}

func newRequestID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}
