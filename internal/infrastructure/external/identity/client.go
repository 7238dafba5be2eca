// Package identity implements the identity provider API client.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tuforums/tuf-rankings/pkg/circuitbreaker"
	"github.com/tuforums/tuf-rankings/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUserNotFound is returned when the provider knows no such account.
	ErrUserNotFound = errors.New("identity: user not found")

	// ErrRateLimited is returned when the rate budget is exhausted.
	ErrRateLimited = errors.New("identity: rate limited")

	// ErrUnavailable is returned when the provider cannot be reached,
	// including when the circuit breaker is open.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the identity client.
type ClientConfig struct {
	// BaseURL is the provider API base URL
	BaseURL string

	// Token authenticates lookup requests
	Token string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// Client is the identity provider API client.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *circuitbreaker.CircuitBreaker
	retrier        *retry.Retrier
}

// NewClient creates a new identity client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: circuitbreaker.IdentityBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
		retrier: retry.IdentityRetrier(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

// LookupByID resolves a provider account by its snowflake ID.
func (c *Client) LookupByID(ctx context.Context, id uint64) (*User, error) {
	path := "/users/" + strconv.FormatUint(id, 10)
	return c.lookup(ctx, path)
}

// LookupByHandle resolves a provider account by its unique username.
// Providers without a handle search endpoint answer 404 here, which maps
// to ErrUserNotFound like any unknown account.
func (c *Client) LookupByHandle(ctx context.Context, handle string) (*User, error) {
	path := "/users/search?username=" + url.QueryEscape(handle)
	return c.lookup(ctx, path)
}

func (c *Client) lookup(ctx context.Context, path string) (*User, error) {
	var user *User

	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			u, err := c.doLookup(ctx, path)
			if err != nil {
				return err
			}
			user = u
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	return user, nil
}

// doLookup performs one provider request. Transient failures come back
// wrapped as retryable, definitive answers as permanent.
func (c *Client) doLookup(ctx context.Context, path string) (*User, error) {
	if err := c.rateLimiter.Allow(ctx); err != nil {
		return nil, retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bot "+c.config.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Permanent(ErrUserNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.rateLimiter.RecordRateLimitHit()
		return nil, retry.Retryable(ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, retry.Retryable(fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, retry.Permanent(fmt.Errorf("identity: unexpected status %d: %s", resp.StatusCode, body))
	}

	var dto UserDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, retry.Permanent(fmt.Errorf("identity: decode response: %w", err))
	}

	u, err := toUser(dto)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	c.logger.Debug("resolved identity", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Available reports whether the circuit currently admits requests.
func (c *Client) Available() bool {
	return !c.circuitBreaker.IsOpen()
}
