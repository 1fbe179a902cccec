// Package apiclient talks to the client records backend.
//
// Calls that feed cosmetic parts of the dashboard (the gender catalog and the
// per-gender counts) never fail: they log and return a fallback. Calls that
// feed the result list return typed errors from pkg/errors.
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

	"github.com/jwalitptl/client-dashboard/internal/model"
	"github.com/jwalitptl/client-dashboard/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/client-dashboard/pkg/errors"
	"github.com/jwalitptl/client-dashboard/pkg/logger"
	"github.com/jwalitptl/client-dashboard/pkg/metrics"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 10 * time.Second

	DefaultAgeMin = 0
	DefaultAgeMax = 100

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 16 << 20
)

const (
	opListGenders  = "list_genders"
	opGenderCount  = "gender_count"
	opListClients  = "list_clients"
	opListAll      = "list_all_clients"
	opPing         = "ping"
	statusOK       = "ok"
	statusNetwork  = "network_error"
	statusServer   = "server_error"
	statusDecoding = "decode_error"
)

type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the transport; the caller owns its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(circuitbreaker.Settings{Name: "backend-api", Timeout: 30 * time.Second}, c.log)
	}
	return c, nil
}

// NewBreaker builds a breaker that ignores 4xx answers and cancelled requests,
// and logs transitions.
func NewBreaker(settings circuitbreaker.Settings, log *logger.Logger) *circuitbreaker.CircuitBreaker {
	settings.IsSuccessful = func(err error) bool {
		// A caller abandoning its request says nothing about the backend.
		if err == nil || errors.Is(err, context.Canceled) {
			return true
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrServer {
			return appErr.Status < http.StatusInternalServerError
		}
		return false
	}
	settings.OnStateChange = func(name, from, to string) {
		log.Info("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	}
	return circuitbreaker.NewCircuitBreaker(settings)
}

// ListGenderCategories returns the gender catalog, or ["Male","Female"] when
// the backend cannot be reached or answers badly.
func (c *Client) ListGenderCategories(ctx context.Context) []string {
	var genders []string
	if err := c.getJSON(ctx, opListGenders, "/genders", nil, &genders); err != nil {
		c.log.Warn(err, "error fetching gender list, using fallback")
		return model.FallbackGenders()
	}
	if genders == nil {
		return []string{}
	}
	return genders
}

// GetGenderCount returns the number of clients with gender g, or 0 on failure.
func (c *Client) GetGenderCount(ctx context.Context, g string) int {
	var body model.GenderCount
	if err := c.getJSON(ctx, opGenderCount, "/genders/"+url.PathEscape(g)+"/count", nil, &body); err != nil {
		c.log.Warn(err, "error fetching gender count", "gender", g)
		return 0
	}
	return body.Count
}

// ListClients returns clients aged within [ageMin, ageMax].
func (c *Client) ListClients(ctx context.Context, ageMin, ageMax int) ([]model.Client, error) {
	q := url.Values{}
	q.Set("age_min", strconv.Itoa(ageMin))
	q.Set("age_max", strconv.Itoa(ageMax))
	clients, err := c.listClients(ctx, opListClients, q)
	if err != nil {
		c.log.Error(err, "error fetching clients by age range", "age_min", ageMin, "age_max", ageMax)
		return nil, err
	}
	return clients, nil
}

// ListAllClients returns every client the backend serves.
func (c *Client) ListAllClients(ctx context.Context) ([]model.Client, error) {
	clients, err := c.listClients(ctx, opListAll, nil)
	if err != nil {
		c.log.Error(err, "error fetching all clients")
		return nil, err
	}
	return clients, nil
}

// Ping checks that the backend answers the catalog endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var discard json.RawMessage
	return c.getJSON(ctx, opPing, "/genders", nil, &discard)
}

// listClients coerces a body that is not a JSON array into an empty list.
func (c *Client) listClients(ctx context.Context, op string, q url.Values) ([]model.Client, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, op, "/clients", q, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []model.Client{}, nil
	}
	clients := []model.Client{}
	if err := json.Unmarshal(trimmed, &clients); err != nil {
		return nil, apperrors.NewDecode(op, err)
	}
	return clients, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	start := time.Now()
	err := c.breaker.Execute(func() error {
		return c.do(ctx, op, endpoint, out)
	})
	if circuitbreaker.IsOpen(err) {
		err = apperrors.NewNetwork(op, err)
	}
	c.observe(op, start, err)
	return err
}

func (c *Client) do(ctx context.Context, op, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewNetwork(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewNetwork(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewServer(op, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewDecode(op, err)
	}
	return nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := statusOK
	switch {
	case err == nil:
	case apperrors.IsServer(err):
		status = statusServer
	case apperrors.IsDecode(err):
		status = statusDecoding
	default:
		status = statusNetwork
	}
	c.metrics.APIRequests.WithLabelValues(op, status).Inc()
	c.metrics.APILatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
