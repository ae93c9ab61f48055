package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/powderlines/powderlines/internal/fault"
)

// Default request headers. Upstream resort pages reject obvious bot agents,
// so the client presents a desktop browser.
const (
	desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	acceptHeader     = "application/json, text/plain, */*"
)

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client for circuit breaker naming.
	Name string

	// Timeout is the per-attempt request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Default: 2 (three attempts total)
	MaxRetries uint64

	// BackoffBase scales the wait between attempts: attempt N waits
	// BackoffBase × N. Default: 2 seconds
	BackoffBase time.Duration

	// InitialJitter adds a uniform 0.5–1.0s sleep before the first
	// attempt so fan-out workers do not hit a provider in lockstep.
	InitialJitter bool

	// UserAgent overrides the default desktop User-Agent.
	UserAgent string

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultClientConfig returns sensible defaults for the resilient client.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:           name,
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		BackoffBase:    2 * time.Second,
		InitialJitter:  true,
		CircuitBreaker: &cbConfig,
	}
}

// Client is a resilient HTTP client with circuit breaker and retry logic.
// Failures come back classified: HTTP_404, TIMEOUT, CONNECTION_ERROR, or
// UNKNOWN. The client never panics and never returns an unclassified error
// after exhausting its retries.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = desktopUserAgent
	}

	var cb *gobreaker.CircuitBreaker[*http.Response]
	if cfg.CircuitBreaker != nil {
		cb = NewCircuitBreaker[*http.Response](*cfg.CircuitBreaker) //nolint:bodyclose // type param, not response
	} else {
		defaultCB := DefaultCircuitBreakerConfig(cfg.Name)
		cb = NewCircuitBreaker[*http.Response](defaultCB) //nolint:bodyclose // type param, not response
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: cb,
		config:         cfg,
	}
}

// Get issues a GET request and returns the response or a classified failure.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fault.New(fault.TypeUnknown, err.Error(), url)
	}
	return c.Do(req)
}

// Post issues a POST request with a replayable body and returns the
// response or a classified failure.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fault.New(fault.TypeUnknown, err.Error(), url)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// Do executes an HTTP request with circuit breaker protection and retry
// logic. Retries happen only on transport errors, timeouts, and status
// 408/425/429/5xx. 404 surfaces immediately as HTTP_404; other 4xx are not
// retried either.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext executes an HTTP request with the given context.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	if c.config.InitialJitter {
		if err := sleepJitter(ctx); err != nil {
			return nil, fault.Classify(err, url)
		}
	}

	bo := &stepBackOff{base: c.config.BackoffBase}
	backoffWithRetries := backoff.WithMaxRetries(bo, c.config.MaxRetries)
	backoffWithContext := backoff.WithContext(backoffWithRetries, ctx)

	var (
		finalResp  *http.Response
		lastStatus int
		attempts   int
	)

	operation := func() error {
		attempts++

		// Retryable statuses are returned as errors so they both trip
		// the circuit breaker and drive the retry loop.
		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes on success
			reqClone := req.Clone(ctx)
			if reqClone.GetBody != nil {
				body, bodyErr := reqClone.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				reqClone.Body = body
			}
			if reqClone.Header.Get("User-Agent") == "" {
				reqClone.Header.Set("User-Agent", c.config.UserAgent)
			}
			if reqClone.Header.Get("Accept") == "" {
				reqClone.Header.Set("Accept", acceptHeader)
			}

			r, doErr := c.httpClient.Do(reqClone)
			if doErr != nil {
				return nil, doErr
			}
			if retryableStatus(r.StatusCode) {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fault.New(fault.TypeConnectionError,
					"circuit open for "+c.config.Name, url))
			}

			var se *ServerError
			if errors.As(err, &se) {
				lastStatus = se.StatusCode
				if resp != nil {
					drainClose(resp)
				}
			}
			// Transport errors and retryable statuses go around again.
			return err
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			drainClose(resp)
			return backoff.Permanent(fault.New(fault.TypeHTTPNotFound,
				"404 Not Found", url))
		case resp.StatusCode >= 400:
			status := resp.Status
			drainClose(resp)
			return backoff.Permanent(fault.New(fault.TypeUnknown,
				"unexpected status "+status, url))
		}

		finalResp = resp
		return nil
	}

	if err := backoff.Retry(operation, backoffWithContext); err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) {
			return nil, fe
		}
		if lastStatus != 0 {
			return nil, fault.New(fault.TypeUnknown,
				fmt.Sprintf("status %d after %d attempts", lastStatus, attempts), url)
		}
		return nil, fault.Classify(err, url)
	}

	return finalResp, nil
}

// retryableStatus reports whether a status is worth another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

// sleepJitter sleeps a uniform 0.5–1.0s, honoring context cancellation.
func sleepJitter(ctx context.Context) error {
	d := 500*time.Millisecond + time.Duration(rand.Int63n(int64(500*time.Millisecond))) //nolint:gosec // jitter, not crypto
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// stepBackOff waits base × N before attempt N+1.
type stepBackOff struct {
	base time.Duration
	n    int64
}

func (b *stepBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.base
}

func (b *stepBackOff) Reset() {
	b.n = 0
}

// ServerError represents a retryable HTTP error status.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
