// Package github issues single query/response exchanges against the GitHub
// GraphQL API and classifies failures into a stable error taxonomy.
//
// The client performs no caching and no retries: one failed attempt is a
// failed call.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/mcp-tg/github-reader/internal/config"
	"github.com/mcp-tg/github-reader/internal/logging"
)

// Client executes GraphQL queries against a single endpoint with a fixed
// per-request timeout. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
	logger     *logging.Logger
}

// NewClient creates a client from credential configuration. When a token is
// set, requests carry a bearer Authorization header via an oauth2 transport.
func NewClient(cfg *config.GitHubConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}

	httpClient := &http.Client{}
	if cfg.Token.IsSet() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		timeout:    cfg.Timeout.Duration(),
		logger:     logger.Named("github"),
	}
}

// request is the GraphQL POST body.
type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// response is the GraphQL envelope.
type response struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute performs one query/response exchange and returns the payload's
// data object. The correlation identifier is taken from ctx when present
// and generated otherwise.
//
// Failure classification:
//   - 2xx with an errors list: KindProtocol, messages semicolon-joined
//   - 401/403/404/other status: KindUnauthorized/KindForbidden/KindNotFound/KindHTTP
//   - timeout, DNS, socket failure: KindConnectivity
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logging.WithRequestID(ctx, requestID)
	}

	start := time.Now()
	c.logger.Info(ctx, "GitHub API request started",
		zap.Any("variables", variables))

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		apiErr := classifyTransportError(err)
		c.logError(ctx, apiErr, start)
		return nil, apiErr
	}
	defer httpResp.Body.Close()

	if apiErr := classifyStatus(httpResp.StatusCode); apiErr != nil {
		c.logError(ctx, apiErr, start)
		return nil, apiErr
	}

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		apiErr := &APIError{
			Kind:    KindProtocol,
			Message: fmt.Sprintf("invalid response body: %v", err),
		}
		c.logError(ctx, apiErr, start)
		return nil, apiErr
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msg := e.Message
			if msg == "" {
				msg = "Unknown error"
			}
			messages = append(messages, msg)
		}
		apiErr := &APIError{
			Kind:    KindProtocol,
			Message: strings.Join(messages, "; "),
		}
		c.logError(ctx, apiErr, start)
		return nil, apiErr
	}

	c.logger.Info(ctx, "GitHub API request successful",
		zap.Float64("execution_time_ms", msSince(start)))

	if resp.Data == nil {
		return map[string]any{}, nil
	}
	return resp.Data, nil
}

// classifyStatus maps a non-2xx status to an APIError, nil otherwise.
func classifyStatus(status int) *APIError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return &APIError{Kind: KindUnauthorized, Status: status, Message: "invalid or expired GitHub token"}
	case status == http.StatusForbidden:
		return &APIError{Kind: KindForbidden, Status: status, Message: "rate limit exceeded or forbidden resource"}
	case status == http.StatusNotFound:
		return &APIError{Kind: KindNotFound, Status: status, Message: "resource not found"}
	default:
		return &APIError{
			Kind:    KindHTTP,
			Status:  status,
			Message: fmt.Sprintf("API request failed: %d %s", status, http.StatusText(status)),
		}
	}
}

// classifyTransportError maps a transport failure to KindConnectivity. The
// url.Error wrapper is stripped so the endpoint URL never reaches the
// message.
func classifyTransportError(err error) *APIError {
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		cause = urlErr.Err
	}

	msg := "network error: " + cause.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "network error: request timed out"
	}
	return &APIError{Kind: KindConnectivity, Message: msg}
}

func (c *Client) logError(ctx context.Context, apiErr *APIError, start time.Time) {
	c.logger.Error(ctx, "GitHub API request failed",
		zap.String("error_kind", string(apiErr.Kind)),
		zap.Int("status_code", apiErr.Status),
		zap.String("error", apiErr.Message),
		zap.Float64("execution_time_ms", msSince(start)))
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
