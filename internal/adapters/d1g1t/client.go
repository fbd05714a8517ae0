// Package d1g1t is a small REST client for the d1g1t platform API: token
// login, calculation requests and paged entity listings.
package d1g1t

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIPrefix = "api/v1"
	DefaultPollLimit = 100
	DefaultBatchSize = 1000

	loginPath   = "auth/login/"
	refreshPath = "auth/login/refresh/"
)

var (
	ErrLoginFailed  = errors.New("login failed")
	ErrNoResponse   = errors.New("request returned no result")
	ErrStillWaiting = errors.New("calculation still pending")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("d1g1t API returned status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	Server    string
	APIPrefix string
	// RequestsPerSecond caps outgoing requests; 0 disables the limit.
	RequestsPerSecond float64
	// PollLimit is how many times a calculation answered with 202 is re-posted.
	PollLimit    int
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// Client talks to one d1g1t server. It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	pollLimit    int
	pollInterval time.Duration
	logger       *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for opts.Server.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.APIPrefix == "" {
		opts.APIPrefix = DefaultAPIPrefix
	}
	if opts.PollLimit <= 0 {
		opts.PollLimit = DefaultPollLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL:      NormalizeDomain(opts.Server) + "/" + strings.Trim(opts.APIPrefix, "/"),
		httpClient:   opts.HTTPClient,
		limiter:      limiter,
		pollLimit:    opts.PollLimit,
		pollInterval: opts.PollInterval,
		logger:       logger,
	}
}

// NormalizeDomain prefixes a bare host with https:// and drops trailing slashes.
func NormalizeDomain(server string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}
	return server
}

// ServerName returns the short environment name of a server, e.g.
// "https://api-prod.example.com" gives "prod".
func ServerName(server string) string {
	s := NormalizeDomain(server)
	s = s[strings.Index(s, "://")+3:]
	s = strings.TrimPrefix(s, "api-")
	if i := strings.IndexAny(s, ".:/"); i >= 0 {
		s = s[:i]
	}
	return s
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string { return c.baseURL }

// Login exchanges credentials for a JWT used by later requests.
func (c *Client) Login(ctx context.Context, username, password string) error {
	status, body, err := c.do(ctx, http.MethodPost, loginPath, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	token := gjson.GetBytes(body, "token").String()
	if (status != http.StatusOK && status != http.StatusCreated) || token == "" {
		return fmt.Errorf("%w for %s: status %d", ErrLoginFailed, username, status)
	}
	c.setToken(token)
	c.logger.Info("Logged in", "user", username)
	return nil
}

// Refresh renews the current token.
func (c *Client) Refresh(ctx context.Context) error {
	current := c.Token()
	if current == "" {
		return ErrNotLoggedIn
	}
	status, body, err := c.do(ctx, http.MethodPost, refreshPath, map[string]string{"token": current})
	if err != nil {
		return err
	}
	token := gjson.GetBytes(body, "token").String()
	if (status != http.StatusOK && status != http.StatusCreated) || token == "" {
		return &StatusError{StatusCode: status, Body: string(body)}
	}
	c.setToken(token)
	c.logger.Debug("Token refreshed")
	return nil
}

// Token returns the current JWT, empty before Login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Calc posts a calculation request. The server answers 202 while the result
// is being computed; the request is re-posted until it completes or the poll
// limit is reached.
func (c *Client) Calc(ctx context.Context, calcType string, payload any) (json.RawMessage, error) {
	path := "calc/" + strings.Trim(calcType, "/") + "/"

	status, body, err := c.do(ctx, http.MethodPost, path, payload)
	for attempt := 0; err == nil && status == http.StatusAccepted && attempt < c.pollLimit; attempt++ {
		if err := sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		status, body, err = c.do(ctx, http.MethodPost, path, payload)
	}
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return nil, fmt.Errorf("%w: %s after %d polls", ErrStillWaiting, calcType, c.pollLimit)
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status, Body: string(body)}
	}
	if isEmpty(body) {
		return nil, fmt.Errorf("%w: %s", ErrNoResponse, calcType)
	}
	return json.RawMessage(body), nil
}

// Entity identifies a portfolio entity by its firm key and platform id.
type Entity struct {
	FirmProvidedKey string
	EntityID        string
}

// ListEntities pages through data/<level>/ and returns every entity.
func (c *Client) ListEntities(ctx context.Context, level string, batchSize int) ([]Entity, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	base := "data/" + strings.Trim(level, "/") + "/"

	var (
		entities []Entity
		total    int64 = -1
	)
	for offset := 0; total < 0 || int64(offset) < total; offset += batchSize {
		path := fmt.Sprintf("%s?limit=%d", base, batchSize)
		if offset > 0 {
			path += fmt.Sprintf("&offset=%d", offset)
		}
		status, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, &StatusError{StatusCode: status, Body: string(body)}
		}
		if isEmpty(body) {
			return nil, fmt.Errorf("%w: %s", ErrNoResponse, base)
		}

		page := gjson.GetManyBytes(body, "count", "results")
		if total < 0 {
			total = page[0].Int()
			c.logger.Info("Listing entities", "level", level, "total", total)
		}
		results := page[1].Array()
		for _, r := range results {
			entities = append(entities, Entity{
				FirmProvidedKey: r.Get("firm_provided_key").String(),
				EntityID:        r.Get("entity_id").String(),
			})
		}
		c.logger.Debug("Downloaded entities", "level", level, "downloaded", len(entities))
		if len(results) == 0 {
			break
		}
	}
	return entities, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func isEmpty(body []byte) bool {
	switch strings.TrimSpace(string(body)) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
