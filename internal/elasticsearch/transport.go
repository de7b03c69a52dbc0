package elasticsearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/stackvista/es-snapper/internal/logger"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	// DefaultMaxAttempts is the number of attempts made for a single request
	DefaultMaxAttempts = 10
	// DefaultBackoffBase is the delay before the first retry
	DefaultBackoffBase = 1 * time.Second
	// DefaultBackoffCap is the maximum delay between two attempts
	DefaultBackoffCap = 4 * time.Minute
)

var defaultExpected = []int{http.StatusOK, http.StatusCreated}

// ConnectionConfig holds everything needed to reach a cluster.
// It is resolved once at startup and never changed afterwards.
type ConnectionConfig struct {
	URL      string
	Username string
	Password string
	CACert   []byte
	Insecure bool
}

// RetryPolicy controls how failed requests are retried
type RetryPolicy struct {
	MaxAttempts int
	Backoff     wait.Backoff
	// RetryWrites enables retries for PUT, POST and DELETE requests. A retried
	// write may be applied twice when the first response was lost.
	RetryWrites bool
}

// DefaultRetryPolicy returns a policy doubling the delay from 1s up to 4m over 10 attempts
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff: wait.Backoff{
			Duration: DefaultBackoffBase,
			Factor:   2,
			Steps:    DefaultMaxAttempts,
			Cap:      DefaultBackoffCap,
		},
		RetryWrites: true,
	}
}

// RequestFunc builds a fresh request for every attempt so bodies can be replayed
type RequestFunc func() esapi.Request

// Result holds the outcome of a request whose status was accepted
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes typed Elasticsearch requests, checks the response status
// against the accepted set and retries transient failures with exponential backoff.
type Transport struct {
	es    esapi.Transport
	retry RetryPolicy
	log   *logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTransport creates a Transport for the given connection
func NewTransport(conn ConnectionConfig, retry RetryPolicy, log *logger.Logger) (*Transport, error) {
	if conn.URL == "" {
		return nil, fmt.Errorf("cluster URL is required")
	}

	cfg := elasticsearch.Config{
		Addresses:    []string{conn.URL},
		DisableRetry: true,
	}
	if conn.Username != "" && conn.Password != "" {
		log.Debugf("Using HTTP basic auth as user '%s'", conn.Username)
		cfg.Username = conn.Username
		cfg.Password = conn.Password
	}
	if len(conn.CACert) > 0 {
		cfg.CACert = conn.CACert
	}
	if conn.Insecure {
		cfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // explicitly requested with --insecure
		}
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	return &Transport{
		es:    es,
		retry: retry,
		log:   log,
		sleep: sleepContext,
	}, nil
}

// Do performs the request built by build. With no expected codes given, 200
// and 201 are accepted. The body of an accepted 2xx response is decoded into
// out unless out is nil.
func (t *Transport) Do(ctx context.Context, build RequestFunc, out any, expected ...int) (*Result, error) {
	if len(expected) == 0 {
		expected = defaultExpected
	}

	backoff := t.retry.Backoff
	for attempt := 1; ; attempt++ {
		c := &call{es: t.es}
		res, err := t.attempt(ctx, c, build(), expected)
		if err == nil {
			if out != nil && res.StatusCode < http.StatusMultipleChoices && len(res.Body) > 0 {
				if err := json.Unmarshal(res.Body, out); err != nil {
					return nil, fmt.Errorf("failed to decode response of %s %s: %w", c.method, c.path, err)
				}
			}
			return res, nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s aborted: %w", c.method, c.path, ctx.Err())
		}

		var terr *TransportError
		if errors.As(err, &terr) {
			terr.Attempts = attempt
		}
		if attempt >= t.retry.MaxAttempts || !t.retryable(c.method) {
			return nil, err
		}

		delay := backoff.Step()
		t.log.Debugf("Attempt %d/%d of %s %s failed (%v), retrying in %s",
			attempt, t.retry.MaxAttempts, c.method, c.path, err, delay)
		if err := t.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%s %s aborted: %w", c.method, c.path, err)
		}
	}
}

func (t *Transport) attempt(ctx context.Context, c *call, req esapi.Request, expected []int) (*Result, error) {
	res, err := req.Do(ctx, c)
	if err != nil {
		return nil, &TransportError{Method: c.method, Path: c.path, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: c.method, Path: c.path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	t.log.Debugf("%s %s -> %d", c.method, c.path, res.StatusCode)

	if !slices.Contains(expected, res.StatusCode) {
		return nil, &StatusError{
			Method:     c.method,
			Path:       c.path,
			StatusCode: res.StatusCode,
			Expected:   expected,
			Body:       string(body),
		}
	}

	return &Result{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
	}, nil
}

// retryable reports whether a failed request may be sent again. Network
// failures and every status outside the accepted set are retried; writes only
// when the policy allows it.
func (t *Transport) retryable(method string) bool {
	return t.retry.RetryWrites || method == http.MethodGet || method == http.MethodHead
}

// call records the method and path of the request it performs for error
// reporting, since typed esapi requests build the URL internally. It also
// makes sure every request declares a JSON content type.
type call struct {
	es     esapi.Transport
	method string
	path   string
}

func (c *call) Perform(req *http.Request) (*http.Response, error) {
	c.method = req.Method
	c.path = req.URL.Path
	// esapi sets it only on requests with a body
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.es.Perform(req)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
