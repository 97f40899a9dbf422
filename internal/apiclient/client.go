package apiclient

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

	"github.com/gorilla/websocket"

	"mediaflow/internal/api"
	"mediaflow/internal/config"
	"mediaflow/internal/services"
)

// ErrDaemonUnavailable is returned when the daemon API cannot be reached.
var ErrDaemonUnavailable = fmt.Errorf("mediaflow daemon is not reachable: %w", services.ErrTransient)

// HTTPDoer describes the HTTP client used to call the daemon.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    HTTPDoer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// New constructs a client for the daemon at baseURL.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig targets the daemon described by cfg.
func FromConfig(cfg *config.Config, opts ...Option) *Client {
	return New(cfg.APIBaseURL(), cfg.Paths.APIToken, opts...)
}

// BaseURL returns the daemon address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Error is a non-2xx response decoded from the daemon's error envelope.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto the shared error markers so callers can use
// errors.Is(err, services.ErrNotFound) and friends.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusRequestedRangeNotSatisfiable:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return services.ErrConfiguration
	default:
		return services.ErrTransient
	}
}

// ListOptions filters ListItems.
type ListOptions struct {
	Statuses []string
	Owner    string
	Limit    int
}

// Status fetches daemon, scheduler, and dependency health.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var out api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListItems returns catalog items, newest first.
func (c *Client) ListItems(ctx context.Context, opts ListOptions) ([]api.Item, error) {
	query := url.Values{}
	if len(opts.Statuses) > 0 {
		query.Set("status", strings.Join(opts.Statuses, ","))
	}
	if owner := strings.TrimSpace(opts.Owner); owner != "" {
		query.Set("owner", owner)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/items"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out api.ItemListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, id string) (*api.Item, error) {
	var out api.ItemResponse
	if err := c.do(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// Ingest registers a file already on the daemon host and queues it.
func (c *Client) Ingest(ctx context.Context, req api.IngestRequest) (*api.Item, error) {
	var out api.ItemResponse
	if err := c.do(ctx, http.MethodPost, "/api/items", req, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// Reprocess resets a completed or failed item and queues it again.
func (c *Client) Reprocess(ctx context.Context, id string) (*api.Item, error) {
	var out api.ItemResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/reprocess", nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// Info fetches the playback summary for an item.
func (c *Client) Info(ctx context.Context, id string) (*api.MediaInfo, error) {
	var out api.MediaInfo
	if err := c.do(ctx, http.MethodGet, "/media/"+url.PathEscape(id)+"/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MediaURL is the streaming URL for an item, with the token embedded for
// players that cannot send headers.
func (c *Client) MediaURL(id string) string {
	u := c.baseURL + "/media/" + url.PathEscape(id)
	if c.token != "" {
		u += "?access_token=" + url.QueryEscape(c.token)
	}
	return u
}

// DialProgress opens the progress websocket.
func (c *Client) DialProgress(ctx context.Context) (*websocket.Conn, error) {
	wsURL := c.baseURL + "/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	return conn, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope api.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrDaemonUnavailable)
}
