// Package transport talks to the booking backend over HTTP: it submits
// enquiries and fetches per-day availability of a property.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

// EnquiryPath is where enquiries are posted, relative to the base URL.
const EnquiryPath = "/property/booking/enquiry"

// ResponseError is a non-2xx answer from the backend. Its body is the
// backend's structured error, typically a status and message pair.
type ResponseError struct {
	StatusCode int
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("backend responded %d", e.StatusCode)
}

// Payload implements types.PayloadError.
func (e *ResponseError) Payload() []byte { return e.Body }

// Client is a fasthttp client for the booking backend. It implements
// types.Submitter and types.AvailabilityResolver.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Zero keeps types.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", types.ErrSubmitURLInvalid, baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{Name: "staybook"},
		timeout: types.DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit posts the serialized enquiry. A 2xx response returns its JSON
// object (empty when the body is empty). Any other status returns a
// *ResponseError carrying the body.
func (c *Client) Submit(ctx context.Context, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode enquiry: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + EnquiryPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyRaw(body)

	respBody, err := c.do(ctx, req, resp)
	if err != nil {
		return nil, fmt.Errorf("submit enquiry: %w", err)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode enquiry response: %w", err)
	}
	return out, nil
}

// AvailabilityPath returns the availability path of propRef.
func AvailabilityPath(propRef string) string {
	return "/property/" + url.PathEscape(propRef) + "/availability"
}

// Resolve fetches the days of propRef, a JSON array of
// {"date","available","code","changeover"} objects, as a calendar.
func (c *Client) Resolve(ctx context.Context, propRef string) (types.AvailabilitySource, error) {
	if propRef == "" {
		return nil, types.ErrInvalidPropRef
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + AvailabilityPath(propRef))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	body, err := c.do(ctx, req, resp)
	if err != nil {
		return nil, fmt.Errorf("fetch availability of %s: %w", propRef, err)
	}
	var days []types.DayAvailability
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, fmt.Errorf("decode availability of %s: %w", propRef, err)
	}
	return types.NewCalendar(days), nil
}

// do performs req within the earlier of the client timeout and the ctx
// deadline, and returns a copy of the body of a 2xx response.
func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	err := c.http.DoDeadline(req, resp, deadline)
	c.logger.Debug("backend request",
		zap.ByteString("method", req.Header.Method()),
		zap.ByteString("uri", req.RequestURI()),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body := append([]byte(nil), resp.Body()...)
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &ResponseError{StatusCode: code, Body: body}
	}
	return body, nil
}
