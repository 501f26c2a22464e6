// Package monnify is a small client for the Monnify collections API.
package monnify

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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	SandboxURL = "https://sandbox.monnify.com"
	LiveURL    = "https://api.monnify.com"

	ModeTest = "test"
	ModeLive = "live"
)

var (
	// ErrGatewayUnavailable covers transport failures, auth failures, 5xx and an open breaker.
	ErrGatewayUnavailable = errors.New("monnify: gateway unavailable")
	// ErrGatewayRejected means Monnify answered but refused the request.
	ErrGatewayRejected = errors.New("monnify: request rejected")
	// ErrTransactionNotFound means Monnify has no transaction for the reference.
	ErrTransactionNotFound = errors.New("monnify: transaction not found")
)

var defaultPaymentMethods = []string{"CARD", "ACCOUNT_TRANSFER"}

// Config is the immutable gateway configuration handed to NewClient.
type Config struct {
	Mode         string
	BaseURL      string
	APIKey       string
	SecretKey    string
	ContractCode string
	Timeout      time.Duration
}

// BaseURLFor returns the API host for a mode; anything but live is sandbox.
func BaseURLFor(mode string) string {
	if strings.EqualFold(mode, ModeLive) {
		return LiveURL
	}
	return SandboxURL
}

// Client talks to Monnify with a cached bearer token behind a circuit breaker.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens oauth2.TokenSource
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURLFor(cfg.Mode)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	base := &http.Client{Timeout: cfg.Timeout}
	tokens := oauth2.ReuseTokenSource(nil, &loginSource{cfg: cfg, client: base})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, tokens)
	httpClient.Timeout = cfg.Timeout

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "monnify",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[Monnify] circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{cfg: cfg, http: httpClient, tokens: tokens, cb: cb, log: logger}
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// envelope is the wrapper Monnify puts around every response.
type envelope struct {
	RequestSuccessful bool            `json:"requestSuccessful"`
	ResponseMessage   string          `json:"responseMessage"`
	ResponseCode      string          `json:"responseCode"`
	ResponseBody      json.RawMessage `json:"responseBody"`
}

type response struct {
	status int
	env    envelope
}

var errServer = errors.New("server error")

// do runs one API call through the breaker. Only transport errors and 5xx count as failures.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*response, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		var body io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %d", errServer, resp.StatusCode)
		}
		r := &response{status: resp.StatusCode}
		if err := json.Unmarshal(raw, &r.env); err != nil && resp.StatusCode < http.StatusBadRequest {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrGatewayUnavailable)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrGatewayUnavailable, method, path, err)
	}
	r := out.(*response)
	if r.status == http.StatusUnauthorized || r.status == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s %s: unauthorized", ErrGatewayUnavailable, method, path)
	}
	return r, nil
}

// Ping fetches an access token to prove the credentials and host work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		return tok, ctx.Err()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return nil
}
