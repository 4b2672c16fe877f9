package twelvedata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
	drepo "FinLoad/internal/domain/repository"
	"FinLoad/internal/service/ratelimit"
	xhttp "FinLoad/pkg/http"
)

const (
	DefaultBaseURL    = "https://api.twelvedata.com"
	DefaultOutputSize = 5000
	timeSeriesPath    = "/time_series"
	unknownError      = "Unknown error"
)

// Client implements QuoteProvider against the Twelve Data time_series endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	outputSize  int
	http        *xhttp.Client
	limiter     *ratelimit.Limiter
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithOutputSize caps the number of bars returned per request.
func WithOutputSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.outputSize = n
		}
	}
}

// WithHTTPClient sets the transport client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithRateLimit gates requests at perMinute with the given burst.
func WithRateLimit(perMinute float64, burst int) Option {
	return func(c *Client) {
		c.limiter = ratelimit.New(perMinute, burst)
	}
}

// WithRetry enables bounded exponential backoff for transport failures.
// maxAttempts counts the first try; 1 disables retry.
func WithRetry(maxAttempts int, min, max time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.backoffMin = min
		c.backoffMax = max
	}
}

// New creates a Twelve Data client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		outputSize:  DefaultOutputSize,
		maxAttempts: 1,
		backoffMin:  500 * time.Millisecond,
		backoffMax:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient()
	}
	return c
}

// timeSeriesResponse mirrors both the success and the error body.
// Values is a pointer so a missing key can be told apart from an empty list.
type timeSeriesResponse struct {
	Status  string             `json:"status"`
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Values  *[]models.RawQuote `json:"values"`
}

// Fetch returns the bars for one symbol between start and end (calendar dates, inclusive).
// At most outputSize bars are returned; a larger range is silently truncated by the provider.
func (c *Client) Fetch(ctx context.Context, symbol string, interval models.Interval, start, end time.Time) ([]models.RawQuote, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("twelvedata: symbol is required")
	}
	if !models.IsValidInterval(interval) {
		return nil, fmt.Errorf("twelvedata: unsupported interval %q", interval)
	}
	if start.After(end) {
		return nil, fmt.Errorf("twelvedata: start %s after end %s", start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	if c.maxAttempts <= 1 {
		return c.fetchOnce(ctx, symbol, interval, start, end)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoffMin
	bo.MaxInterval = c.backoffMax
	op := func() ([]models.RawQuote, error) {
		quotes, err := c.fetchOnce(ctx, symbol, interval, start, end)
		if err != nil && !errs.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return quotes, err
	}
	quotes, err := backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(c.maxAttempts)))
	if err != nil {
		if errs.Kind(err) == errs.KindUnknown {
			err = errs.Transport("retry", 0, err)
		}
		return nil, err
	}
	return quotes, nil
}

func (c *Client) fetchOnce(ctx context.Context, symbol string, interval models.Interval, start, end time.Time) ([]models.RawQuote, error) {
	if err := c.limiter.Wait(ctx, c.apiKey); err != nil {
		return nil, errs.Transport("rate limit wait", 0, err)
	}

	opts := &xhttp.RequestOptions{
		URL: c.baseURL + timeSeriesPath,
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"interval":   {string(interval)},
			"start_date": {start.Format(models.DateLayout)},
			"end_date":   {end.Format(models.DateLayout)},
			"apikey":     {c.apiKey},
			"outputsize": {strconv.Itoa(c.outputSize)},
			"format":     {"JSON"},
		},
	}

	var body timeSeriesResponse
	if err := c.http.GetJSON(ctx, opts, &body); err != nil {
		var se *xhttp.StatusError
		var de *xhttp.DecodeError
		switch {
		case errors.As(err, &se):
			return nil, errs.Transport("GET "+timeSeriesPath, se.StatusCode, err)
		case errors.As(err, &de):
			return nil, &errs.UpstreamError{Message: "malformed response: " + de.Err.Error()}
		default:
			return nil, errs.Transport("GET "+timeSeriesPath, 0, err)
		}
	}

	if body.Values == nil {
		msg := body.Message
		if msg == "" {
			msg = unknownError
		}
		return nil, &errs.UpstreamError{Code: body.Code, Message: msg}
	}

	quotes := *body.Values
	for i := range quotes {
		quotes[i].Symbol = symbol
	}
	return quotes, nil
}

var _ drepo.QuoteProvider = (*Client)(nil)
