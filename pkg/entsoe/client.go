package entsoe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vuorinet/spot/pkg/prices"
	"github.com/vuorinet/spot/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the ENTSO-E Transparency Platform REST endpoint.
	DefaultBaseURL = "https://web-api.tp.entsoe.eu/api"

	// DefaultArea is the EIC code of the Finnish bidding zone.
	DefaultArea = "10YFI-1--------U"

	// DefaultMarket is the market identifier stamped on acquired series.
	DefaultMarket = "FI"

	// periodLayout is the compact UTC timestamp format expected by periodStart/periodEnd.
	periodLayout = "200601021504"

	snippetLength = 300
)

// Client acquires day-ahead price series for one bidding zone.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the REST API.
	BaseURL string

	// Token is the ENTSO-E security token (REQUIRED). Never logged.
	Token string

	// Area is the EIC code used as both in_Domain and out_Domain.
	Area string

	// Market is copied into every acquired series.
	Market string

	// Location defines the civil day boundaries (REQUIRED).
	Location *time.Location

	// Timeout bounds one HTTP attempt.
	Timeout time.Duration

	// RateLimitDelay is the wait before the single retry after a 429.
	RateLimitDelay time.Duration

	// PreferQuarterHour synthesizes 15-minute points when upstream publishes hourly data.
	PreferQuarterHour bool

	// RequestsPerMinute paces outbound requests; a non-positive value disables pacing.
	RequestsPerMinute int

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration for the Finnish bidding zone.
func DefaultConfig(token string, loc *time.Location) Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Token:             token,
		Area:              DefaultArea,
		Market:            DefaultMarket,
		Location:          loc,
		Timeout:           30 * time.Second,
		RateLimitDelay:    1 * time.Second,
		RequestsPerMinute: ratelimit.DefaultRequestsPerMinute,
	}
}

// New creates a new ENTSO-E client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("security token is required")
	}
	if cfg.Location == nil {
		return nil, fmt.Errorf("location is required")
	}
	if cfg.Area == "" {
		return nil, fmt.Errorf("area is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Market == "" {
		cfg.Market = DefaultMarket
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimitDelay < 0 {
		cfg.RateLimitDelay = 0
	}

	logger := log.With().Str("component", "entsoe-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(cfg.RequestsPerMinute, ratelimit.DefaultBurst, logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Acquire fetches the series covering the civil day in the configured location.
// Errors are *NotAvailableError, *DecodeError or *RequestError; see Classify.
func (c *Client) Acquire(ctx context.Context, day civil.Date) (*prices.DaySeries, error) {
	start, end := prices.DayWindow(day, c.config.Location)

	params := url.Values{}
	params.Set("documentType", "A44")
	params.Set("processType", "A01")
	params.Set("in_Domain", c.config.Area)
	params.Set("out_Domain", c.config.Area)
	params.Set("periodStart", start.Format(periodLayout))
	params.Set("periodEnd", end.Format(periodLayout))

	c.logger.Info().
		Str("base_url", c.config.BaseURL).
		Str("params", params.Encode()).
		Str("day", day.String()).
		Msg("Requesting day-ahead prices")

	params.Set("securityToken", c.config.Token)
	requestURL := c.config.BaseURL + "?" + params.Encode()

	body, err := c.fetch(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	series, err := ParsePublication(body, c.config.Market)
	if err != nil {
		var notAvailable *NotAvailableError
		if errors.As(err, &notAvailable) {
			upstreamNotAvailableTotal.Inc()
			c.logger.Info().
				Str("day", day.String()).
				Str("reason", notAvailable.Reason).
				Str("body", snippet(body)).
				Msg("Day-ahead prices not available")
		}
		return nil, err
	}

	if c.config.PreferQuarterHour && series.Granularity == prices.Hour {
		series = prices.SynthesizeQuarterHours(series)
	}

	c.logger.Debug().
		Str("day", day.String()).
		Str("granularity", string(series.Granularity)).
		Int("points", series.Len()).
		Msg("Acquired day-ahead prices")

	return series, nil
}

// fetch performs the GET with rate limiting and the single 429 retry.
func (c *Client) fetch(ctx context.Context, requestURL string) ([]byte, error) {
	var body []byte

	err := retryByClass(ctx, c.logger, c.config.RateLimitDelay, func(ctx context.Context) (ErrorClass, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return "", fmt.Errorf("create request: %w", redactError(err))
		}
		req.Header.Set("Accept", "application/xml")

		startTime := time.Now()
		resp, err := c.httpClient.Do(req)
		upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
		if err != nil {
			errClass := c.classifyError(nil, err)
			upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()
			upstreamRequestsTotal.WithLabelValues("network_error").Inc()
			err = redactError(err)
			c.logger.Error().Err(err).Msg("HTTP request failed")
			return "", &RequestError{
				ErrorClass: errClass,
				Message:    "request failed",
				Err:        err,
			}
		}
		defer resp.Body.Close()

		upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errClass := c.classifyError(resp, nil)
			upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()
			if errClass == ErrorClassRateLimit {
				c.limiter.ObserveRateLimited()
			}

			c.logger.Warn().
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("ENTSO-E request error")

			_, _ = io.Copy(io.Discard, resp.Body)
			return errClass, &RequestError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return "", &RequestError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Message:    "read body",
				Err:        err,
			}
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Limiter returns the outbound limiter for health reporting.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// redactError removes the security token from URLs embedded in transport errors.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable url]"
	}
	q := u.Query()
	if q.Has("securityToken") {
		q.Set("securityToken", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func snippet(body []byte) string {
	if len(body) > snippetLength {
		return string(body[:snippetLength])
	}
	return string(body)
}
