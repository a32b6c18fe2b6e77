// Package xrpl is a minimal JSON-RPC client for the payment ledger: ledger
// and account queries, signing, submission and validation polling.
package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/metrics"
	"github.com/smartaccounts/bridge-relay/bridgeClient/ratelimit"
)

const (
	ledgerName = "xrpl"

	DefaultRequestTimeout         = 30 * time.Second
	DefaultValidationPollInterval = time.Second
)

type Client struct {
	httpClient   *http.Client
	rpcURL       string
	requestID    atomic.Int64
	limiter      *ratelimit.Limiter
	metrics      *metrics.Metrics
	retry        *errors.RetryConfig
	pollInterval time.Duration
	logger       zerolog.Logger
}

type Option func(*Client)

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetryConfig replaces the retry policy for transport failures.
func WithRetryConfig(cfg *errors.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithValidationPollInterval sets how often SubmitAndWait re-reads a pending transaction.
func WithValidationPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(rpcURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.NewConfigError("ledger RPC URL is not configured")
	}
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultRequestTimeout},
		rpcURL:       rpcURL,
		retry:        errors.DefaultRetryConfig(),
		pollInterval: DefaultValidationPollInterval,
		logger:       logger.With().Str("component", "xrpl_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// call issues method with a single params object and decodes the result
// into out. Transport failures and 5xx responses are retried; error
// statuses from the node are not.
func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	var raw json.RawMessage
	err := errors.RetryWithConfig(ctx, func() error {
		var err error
		raw, err = c.do(ctx, method, params)
		return err
	}, c.retry)
	c.metrics.RecordRPCCall(ledgerName, method, ratelimit.ClassifyRPCError(err))
	if err != nil {
		return err
	}

	var status resultStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return errors.NewRPCError(ledgerName, fmt.Sprintf("%s returned a malformed result", method), err)
	}
	if status.Status == "error" || status.Error != "" {
		rpcErr := &RPCError{Method: method, Code: status.Error, Message: status.ErrorMessage}
		if status.Error == "txnNotFound" || status.Error == "actNotFound" {
			return errors.NewNotFoundError(ledgerName, rpcErr.Error())
		}
		return errors.NewRPCError(ledgerName, fmt.Sprintf("%s failed", method), rpcErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewRPCError(ledgerName, fmt.Sprintf("failed to decode %s result", method), err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(Request{
		Method: method,
		Params: []interface{}{params},
		ID:     c.requestID.Add(1),
	})
	if err != nil {
		return nil, errors.NewInternalError(ledgerName, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalError(ledgerName, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewNetworkError(ledgerName, fmt.Sprintf("%s request failed", method), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError(ledgerName, "read response", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.NewNetworkError(ledgerName,
			fmt.Sprintf("%s: http status %d: %s", method, resp.StatusCode, bytes.TrimSpace(respBody)), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewRPCError(ledgerName,
			fmt.Sprintf("%s: http status %d: %s", method, resp.StatusCode, bytes.TrimSpace(respBody)), nil)
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, errors.NewRPCError(ledgerName, "unmarshal response", err)
	}
	if len(rpcResp.Result) == 0 {
		return nil, errors.NewRPCError(ledgerName, fmt.Sprintf("%s returned no result", method), nil)
	}
	return rpcResp.Result, nil
}
