package flex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-go/internal/config"
)

const (
	apiVersion = "3"
	// errCodeInProgress is returned by GetStatement while the report is still being generated.
	errCodeInProgress = "1019"
	maxRetries        = 3
)

var (
	// ErrStatementNotReady means the statement was requested but is not generated yet.
	ErrStatementNotReady = errors.New("statement generation in progress")
	// ErrRequestRejected means the Flex service answered with a failure status.
	ErrRequestRejected = errors.New("flex request rejected")
)

// ClientInterface defines the interface for the Flex Web Service client.
type ClientInterface interface {
	FetchStatement(ctx context.Context) (*Statement, error)
}

// Statement is a downloaded Flex report.
type Statement struct {
	ReferenceCode string
	Body          string
}

// statementResponse is the XML envelope returned by SendRequest, and by
// GetStatement when no report is available.
type statementResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Status        string   `xml:"Status"`
	ReferenceCode string   `xml:"ReferenceCode"`
	URL           string   `xml:"Url"`
	ErrorCode     string   `xml:"ErrorCode"`
	ErrorMessage  string   `xml:"ErrorMessage"`
}

// Client downloads trade log statements from the IBKR Flex Web Service.
// It implements the ClientInterface.
type Client struct {
	client       *resty.Client
	token        string
	queryID      string
	logger       *zap.Logger
	limiter      *rate.Limiter
	pollAttempts int
	pollDelay    time.Duration
	retryBase    time.Duration
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Flex Web Service client.
func NewClient(cfg *config.Flex, logger *zap.Logger) *Client {
	attempts := cfg.PollAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		client:       resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(30 * time.Second),
		token:        cfg.Token,
		queryID:      cfg.QueryID,
		logger:       logger.Named("flex-client"),
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		pollAttempts: attempts,
		pollDelay:    5 * time.Second,
		retryBase:    time.Second,
	}
}

// SendRequest asks the service to generate the configured query and returns
// the reference code used to collect it.
func (c *Client) SendRequest(ctx context.Context) (string, error) {
	req := c.client.R().SetQueryParams(map[string]string{
		"t": c.token,
		"q": c.queryID,
		"v": apiVersion,
	})

	resp, err := c.doRequest(ctx, http.MethodGet, "/SendRequest", req)
	if err != nil {
		return "", fmt.Errorf("failed to send flex request: %w", err)
	}

	var envelope statementResponse
	if err := xml.Unmarshal(resp.Body(), &envelope); err != nil {
		return "", fmt.Errorf("failed to decode flex response: %w", err)
	}
	if !strings.EqualFold(envelope.Status, "Success") || envelope.ReferenceCode == "" {
		return "", fmt.Errorf("%w: %s %s", ErrRequestRejected, envelope.ErrorCode, envelope.ErrorMessage)
	}
	return envelope.ReferenceCode, nil
}

// GetStatement collects a generated statement. It returns ErrStatementNotReady
// while the service is still producing it.
func (c *Client) GetStatement(ctx context.Context, referenceCode string) (string, error) {
	req := c.client.R().SetQueryParams(map[string]string{
		"t": c.token,
		"q": referenceCode,
		"v": apiVersion,
	})

	resp, err := c.doRequest(ctx, http.MethodGet, "/GetStatement", req)
	if err != nil {
		return "", fmt.Errorf("failed to get flex statement: %w", err)
	}

	body := resp.String()
	if strings.Contains(body, "<FlexStatementResponse") {
		var envelope statementResponse
		if err := xml.Unmarshal(resp.Body(), &envelope); err != nil {
			return "", fmt.Errorf("failed to decode flex response: %w", err)
		}
		if envelope.ErrorCode == errCodeInProgress {
			return "", ErrStatementNotReady
		}
		return "", fmt.Errorf("%w: %s %s", ErrRequestRejected, envelope.ErrorCode, envelope.ErrorMessage)
	}
	return body, nil
}

// FetchStatement requests a statement and polls until it is ready or the
// configured number of attempts is used up.
func (c *Client) FetchStatement(ctx context.Context) (*Statement, error) {
	ref, err := c.SendRequest(ctx)
	if err != nil {
		return nil, err
	}
	l := c.logger.With(zap.String("reference_code", ref))
	l.Info("Flex statement requested")

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		body, err := c.GetStatement(ctx, ref)
		if err == nil {
			l.Info("Flex statement downloaded", zap.Int("bytes", len(body)))
			return &Statement{ReferenceCode: ref, Body: body}, nil
		}
		if !errors.Is(err, ErrStatementNotReady) {
			return nil, err
		}

		l.Debug("Statement not ready yet", zap.Int("attempt", attempt))
		select {
		case <-time.After(c.pollDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("statement %s not ready after %d attempts: %w", ref, c.pollAttempts, ErrStatementNotReady)
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	req.SetContext(ctx)

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		// Analyze error and decide whether to retry
		var retryAfter time.Duration
		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode != http.StatusTooManyRequests && statusCode < 500 {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
			err = fmt.Errorf("status %s", resp.Status())
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if retryAfter == 0 {
			// Exponential backoff: base, 2*base, 4*base
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.retryBase
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
