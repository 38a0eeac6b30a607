// Package activityapi is the HTTP client for the remote Activities API.
package activityapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/domain/activity"
	"activityboard/internal/observability"
)

const tracerName = "activityboard/activityapi"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 4 << 20

var (
	// ErrTransport means the request never completed.
	ErrTransport = errors.New("activity api unreachable")
	// ErrMalformedResponse means a 2xx response body could not be decoded.
	ErrMalformedResponse = errors.New("activity api returned a malformed response")
)

// APIError is a non-2xx response. Detail is the server's "detail" text when it
// sent one as a JSON string, empty otherwise.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// Result is the body of a successful signup or removal.
type Result struct {
	Message string
}

// Client calls the Activities API. The zero timeout of the default
// http.Client is kept; in-flight requests are bounded only by ctx.
type Client struct {
	baseURL   string
	http      *http.Client
	collector *perf.Collector
	tracer    trace.Tracer
}

// NewClient creates a client for the API rooted at baseURL.
// PRE: baseURL is an absolute http(s) URL
// POST: Returns a ready client; httpClient and collector may be nil
func NewClient(baseURL string, httpClient *http.Client, collector *perf.Collector) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse activity api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("activity api url must be http or https, got %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		collector: collector,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// activityDetails is the per-activity JSON shape of GET /activities.
type activityDetails struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ListActivities reads the full collection, keeping the server's key order.
// PRE: none
// POST: Returns every activity in response order, or an error
func (c *Client) ListActivities(ctx context.Context) ([]activity.Activity, error) {
	const op = "activityapi.ListActivities"
	var list []activity.Activity
	err := c.do(ctx, op, http.MethodGet, "/activities", nil, func(status int, body []byte) error {
		if !isSuccess(status) {
			return &APIError{Op: op, StatusCode: status, Detail: detailFrom(body)}
		}
		parsed, err := decodeCollection(body)
		if err != nil {
			return err
		}
		list = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Signup enrolls email in the named activity.
// PRE: name and email are the raw (unescaped) values
// POST: Returns the server message on 2xx, *APIError on non-2xx
func (c *Client) Signup(ctx context.Context, name, email string) (Result, error) {
	return c.mutate(ctx, "activityapi.Signup", http.MethodPost, name, "signup", email)
}

// Remove withdraws email from the named activity.
// PRE: name and email are the raw (unescaped) values
// POST: Returns the server message on 2xx, *APIError on non-2xx
func (c *Client) Remove(ctx context.Context, name, email string) (Result, error) {
	return c.mutate(ctx, "activityapi.Remove", http.MethodDelete, name, "remove", email)
}

func (c *Client) mutate(ctx context.Context, op, method, name, action, email string) (Result, error) {
	path := "/activities/" + url.PathEscape(name) + "/" + action
	query := url.Values{"email": {email}}

	var res Result
	err := c.do(ctx, op, method, path, query, func(status int, body []byte) error {
		if !isSuccess(status) {
			return &APIError{Op: op, StatusCode: status, Detail: detailFrom(body)}
		}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		res.Message = payload.Message
		return nil
	}, attribute.String("activity.name", name))
	return res, err
}

// do performs one traced, timed round-trip and hands the body to decode.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, decode func(status int, body []byte) error, attrs ...attribute.KeyValue) error {
	ctx, span := c.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
	defer span.End()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, observability.OutcomeTransportError, 0, start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		slog.Warn("upstream_call_failed", "op", op, "error", err.Error())
		return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(op, observability.OutcomeTransportError, resp.StatusCode, start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return fmt.Errorf("%w: %s: read body: %v", ErrTransport, op, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	outcome := observability.OutcomeOK
	if !isSuccess(resp.StatusCode) {
		outcome = observability.OutcomeRejected
		span.SetStatus(codes.Error, resp.Status)
	}
	c.observe(op, outcome, resp.StatusCode, start)
	slog.Debug("upstream_call", "op", op, "status", resp.StatusCode, "duration_ms", float64(time.Since(start).Microseconds())/1000.0)

	return decode(resp.StatusCode, body)
}

func (c *Client) observe(op, outcome string, status int, start time.Time) {
	elapsed := time.Since(start)
	observability.RecordUpstreamCall(op, outcome, elapsed)
	if c.collector != nil {
		c.collector.Record(perf.Entry{
			Kind:       perf.KindUpstream,
			Path:       op,
			StatusCode: status,
			DurationMs: float64(elapsed.Microseconds()) / 1000.0,
			Timestamp:  start,
		})
	}
}

// decodeCollection walks the top-level object in document order.
func decodeCollection(body []byte) ([]activity.Activity, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected an object of activities", ErrMalformedResponse)
	}

	list := []activity.Activity{}
	var decodeErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() ||
			value.Get("max_participants").Type != gjson.Number ||
			!value.Get("participants").IsArray() {
			decodeErr = fmt.Errorf("%w: activity %q is missing capacity or participants", ErrMalformedResponse, key.String())
			return false
		}
		var d activityDetails
		if err := json.Unmarshal([]byte(value.Raw), &d); err != nil {
			decodeErr = fmt.Errorf("%w: activity %q: %v", ErrMalformedResponse, key.String(), err)
			return false
		}
		participants := d.Participants
		if participants == nil {
			participants = []string{}
		}
		list = append(list, activity.Activity{
			Name:            key.String(),
			Description:     d.Description,
			Schedule:        d.Schedule,
			MaxParticipants: d.MaxParticipants,
			Participants:    participants,
		})
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return list, nil
}

// detailFrom extracts a string "detail" from an error body.
func detailFrom(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	if detail.Type != gjson.String {
		return ""
	}
	return detail.String()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
