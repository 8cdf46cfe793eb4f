package backend

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

	"github.com/jogardn/flashfood-datagen/internal/circuitbreaker"
	"github.com/jogardn/flashfood-datagen/pkg/models"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "http://localhost:1310"

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	breakers   *circuitbreaker.Manager
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBreakers guards every call with the breaker of its collection. Only
// transport failures count toward opening a breaker.
func WithBreakers(manager *circuitbreaker.Manager) Option {
	return func(c *Client) {
		c.breakers = manager
	}
}

// BreakerConfig is the template for per-collection breakers: domain answers
// never trip them.
func BreakerConfig(maxFailures int, timeout time.Duration) circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxFailures: maxFailures,
		Timeout:     timeout,
		MaxRequests: 1,
		IsFailure:   IsTransportError,
	}
}

func NewClient(baseURL string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// List fetches a whole collection and decodes the envelope data into out.
func (c *Client) List(ctx context.Context, collection string, out interface{}) error {
	env, err := c.do(ctx, http.MethodGet, collection, "/"+collection, nil)
	if err != nil {
		return err
	}
	return decodeData(collection, env, out)
}

type PageQuery struct {
	Limit  int
	Offset int
	// Page is used instead of Offset when positive.
	Page int
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	} else if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// ListPage fetches one page of a collection and decodes its items into out.
func (c *Client) ListPage(ctx context.Context, collection string, q PageQuery, out interface{}) (models.Page, error) {
	path := "/" + collection
	if qs := q.values().Encode(); qs != "" {
		path += "?" + qs
	}

	env, err := c.do(ctx, http.MethodGet, collection, path, nil)
	if err != nil {
		return models.Page{}, err
	}

	var page models.Page
	if err := decodeData(collection, env, &page); err != nil {
		return models.Page{}, err
	}
	if out != nil && len(page.Items) > 0 {
		if err := json.Unmarshal(page.Items, out); err != nil {
			return page, fmt.Errorf("failed to decode %s page items: %w", collection, err)
		}
	}
	return page, nil
}

// Create posts payload to the collection. When out is non-nil the created
// record is decoded into it.
func (c *Client) Create(ctx context.Context, collection string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", collection, err)
	}

	env, err := c.do(ctx, http.MethodPost, collection, "/"+collection, body)
	if err != nil {
		return err
	}
	return decodeData(collection, env, out)
}

func (c *Client) do(ctx context.Context, method, collection, path string, body []byte) (models.Envelope, error) {
	var env models.Envelope

	call := func(ctx context.Context) error {
		var err error
		env, err = c.roundTrip(ctx, method, collection, path, body)
		return err
	}

	if c.breakers == nil {
		return env, call(ctx)
	}

	err := c.breakers.For(collection).Execute(ctx, call)
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return env, fmt.Errorf("%s /%s: %w", method, collection, err)
	}
	return env, err
}

func (c *Client) roundTrip(ctx context.Context, method, collection, path string, body []byte) (models.Envelope, error) {
	var env models.Envelope

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return env, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return env, ctxErr
		}
		return env, fmt.Errorf("failed to send %s /%s to backend: %w", method, collection, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, fmt.Errorf("failed to read %s /%s response: %w", method, collection, err)
	}

	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%s /%s: %w (status %d): %s",
			method, collection, ErrMalformedResponse, resp.StatusCode, truncate(raw))
	}

	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"collection": collection,
		"status":     resp.StatusCode,
		"ec":         env.EC,
	}).Debug("Backend responded")

	if !env.OK() {
		return env, &APIError{
			Collection: collection,
			Method:     method,
			Status:     resp.StatusCode,
			Code:       env.EC,
			Message:    env.EM,
			Body:       truncate(raw),
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return env, &APIError{
			Collection: collection,
			Method:     method,
			Status:     resp.StatusCode,
			Code:       env.EC,
			Message:    http.StatusText(resp.StatusCode),
			Body:       truncate(raw),
		}
	}

	return env, nil
}

func decodeData(collection string, env models.Envelope, out interface{}) error {
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", collection, err)
	}
	return nil
}

func truncate(raw []byte) string {
	const max = 2048
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
