package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-checkout/http/internal/tracking"
	"github.com/gaborage/go-checkout/logger"
	"github.com/gaborage/go-checkout/trace"
)

// DefaultTimeout bounds a single attempt, not the whole execution.
const DefaultTimeout = 30 * time.Second

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	logger               logger.Logger
	config               *Config
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	tracker              *tracking.Tracker
	callCount            atomic.Int64

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(limit time.Duration) time.Duration
}

// NewClient creates a client with default configuration
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config         *Config
	logger         logger.Logger
	transport      nethttp.RoundTripper
	meterProvider  metric.MeterProvider
	tracerProvider oteltrace.TracerProvider
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		config: &Config{
			Timeout:        DefaultTimeout,
			DefaultHeaders: make(map[string]string),
			TraceIDHeader:  trace.HeaderXRequestID,
		},
		logger: log,
	}
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithTraceIDHeader changes the header used to propagate the trace ID
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	if header != "" {
		b.config.TraceIDHeader = header
	}
	return b
}

// WithPayloadLogging logs request and response bodies at debug level
func (b *Builder) WithPayloadLogging(enabled bool) *Builder {
	b.config.LogPayloads = enabled
	return b
}

// WithTransport replaces the underlying round tripper. It is still wrapped
// with OpenTelemetry instrumentation.
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithMeterProvider overrides the global meter provider
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithTracerProvider overrides the global tracer provider
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// Build creates the REST client with the configured options
func (b *Builder) Build() Client {
	return b.build()
}

func (b *Builder) build() *client {
	base := b.transport
	if base == nil {
		base = nethttp.DefaultTransport
	}

	var opts []otelhttp.Option
	if b.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(b.meterProvider))
	}
	if b.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(b.tracerProvider))
	}

	return &client{
		httpClient: &nethttp.Client{
			Timeout:   b.config.Timeout,
			Transport: otelhttp.NewTransport(base, opts...),
		},
		logger:               b.logger,
		config:               b.config,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
		tracker:              tracking.New(b.meterProvider, b.tracerProvider),
		now:                  time.Now,
		sleep:                sleepContext,
		jitter:               uniformJitter,
	}
}

// Execute issues req until it succeeds, fails terminally or exhausts
// policy.MaxRetries. Transport failures and 429 responses are retried; any
// other non-2xx status is returned at once as an HTTP error together with the
// response. Canceling ctx aborts both the in-flight request and a pending wait.
func (c *client) Execute(ctx context.Context, req *Request, policy RetryPolicy) (*Response, error) {
	if err := validate(req, policy); err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = nethttp.MethodGet
	}

	start := c.now()
	callCount := c.callCount.Add(1)
	log := c.logger.WithContext(ctx)
	maxAttempts := policy.MaxRetries + 1

	ctx, span := c.tracker.Start(ctx, method, req.URL)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		final := attempt == maxAttempts-1

		httpReq, err := c.buildRequest(ctx, method, req)
		if err != nil {
			return nil, c.fail(ctx, span, log, attempt+1, err)
		}
		c.logAttempt(log, method, req, attempt, maxAttempts)

		attemptStart := c.now()
		httpResp, err := c.httpClient.Do(httpReq)
		if err == nil {
			if ierr := c.runResponseInterceptors(ctx, httpReq, httpResp); ierr != nil {
				httpResp.Body.Close()
				return nil, c.fail(ctx, span, log, attempt+1,
					NewInterceptorError("response interceptor failed", "response", ierr))
			}
		}

		out := classify(httpResp, err)
		c.tracker.Attempt(ctx, method, out.Kind.String(), out.StatusCode, c.now().Sub(attemptStart))

		if out.Kind == OutcomeNetworkError && ctx.Err() != nil {
			return nil, c.fail(ctx, span, log, attempt+1, NewCanceledError(attempt, ctx.Err()))
		}

		var wait time.Duration
		switch out.Kind {
		case OutcomeSuccess:
			resp := c.response(out, start, callCount, attempt+1)
			c.logResponse(log, resp)
			c.tracker.End(ctx, span, out.Kind.String(), attempt+1, nil)
			return resp, nil

		case OutcomeTerminal:
			resp := c.response(out, start, callCount, attempt+1)
			c.logResponse(log, resp)
			return resp, c.fail(ctx, span, log, attempt+1, &httpError{
				message:    fmt.Sprintf("request failed with status %d", out.StatusCode),
				statusCode: out.StatusCode,
				body:       out.Body,
				readErr:    out.Err,
			})

		case OutcomeRateLimited:
			lastErr = NewRateLimitedError(attempt, out.RetryAfter)
			if final {
				break
			}
			wait = rateLimitDelay(policy, attempt, out.RetryAfter, c.now(), c.jitter)

		case OutcomeNetworkError:
			lastErr = c.wrapTransportError(out.Err)
			if final {
				break
			}
			wait = networkDelay(policy, attempt)
		}

		if final {
			break
		}

		log.Warn().
			Err(lastErr).
			Str("outcome", out.Kind.String()).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Dur("wait", wait).
			Msg("Outbound request attempt failed, retrying")

		c.tracker.Wait(ctx, out.Kind.String(), wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, c.fail(ctx, span, log, attempt+1, NewCanceledError(attempt, err))
		}
	}

	return nil, c.fail(ctx, span, log, maxAttempts, NewExhaustedRetriesError(maxAttempts, lastErr))
}

func (c *client) wrapTransportError(err error) ClientError {
	if isTimeout(err) {
		return NewTimeoutError("request timeout", c.config.Timeout, err)
	}
	return NewNetworkError("request execution failed", err)
}

func (c *client) response(out AttemptOutcome, start time.Time, callCount int64, attempts int) *Response {
	return &Response{
		StatusCode: out.StatusCode,
		Body:       out.Body,
		Headers:    out.Headers,
		Stats: Stats{
			ElapsedTime: c.now().Sub(start),
			CallCount:   callCount,
			Attempts:    attempts,
		},
	}
}

func (c *client) fail(ctx context.Context, span oteltrace.Span, log logger.Logger, attempts int, err error) error {
	kind := "unknown"
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		kind = string(clientErr.Type())
	}
	c.tracker.End(ctx, span, kind, attempts, err)
	log.Error().
		Err(err).
		Str("error_type", kind).
		Int("attempts", attempts).
		Msg("Outbound request failed")
	return err
}

// validate checks the request before sending
func validate(req *Request, policy RetryPolicy) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return NewValidationError("URL must be absolute", "url")
	}
	if policy.MaxRetries < 0 {
		return NewValidationError("max retries cannot be negative", "max_retries")
	}
	if policy.BaseDelay <= 0 {
		return NewValidationError("base delay must be positive", "base_delay")
	}
	if policy.MaxJitter < 0 {
		return NewValidationError("max jitter cannot be negative", "max_jitter")
	}
	return nil
}

// applyHeaders applies headers to the HTTP request
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	// request-specific headers override defaults
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
}

// applyAuth applies authentication to the HTTP request
func (c *client) applyAuth(httpReq *nethttp.Request, req *Request) {
	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}
	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
}

// buildRequest constructs a fresh *http.Request, applies headers, auth and
// trace propagation, then runs request interceptors.
func (c *client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to create HTTP request: %v", err), "request")
	}

	c.applyHeaders(httpReq, req)
	c.applyAuth(httpReq, req)
	trace.Inject(ctx, httpReq.Header, c.config.TraceIDHeader)

	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}
	return httpReq, nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) logAttempt(log logger.Logger, method string, req *Request, attempt, maxAttempts int) {
	event := log.Info().
		Str("direction", "outbound").
		Str("method", method).
		Str("url", req.URL).
		Int("attempt", attempt+1).
		Int("max_attempts", maxAttempts)
	event.Msg("REST client request")

	if c.config.LogPayloads {
		debug := log.Debug().Str("url", req.URL)
		if len(req.Headers) > 0 {
			debug = debug.Interface("headers", req.Headers)
		}
		if len(req.Body) > 0 {
			debug = debug.Bytes("body", req.Body)
		}
		debug.Msg("REST client request payload")
	}
}

func (c *client) logResponse(log logger.Logger, resp *Response) {
	log.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Int("attempts", resp.Stats.Attempts).
		Msg("REST client response")

	if c.config.LogPayloads && len(resp.Body) > 0 {
		log.Debug().Bytes("body", resp.Body).Msg("REST client response payload")
	}
}
