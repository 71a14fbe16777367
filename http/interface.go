package http

import (
	"context"
	nethttp "net/http"
	"time"
)

// Client executes outbound requests under a retry policy.
type Client interface {
	Execute(ctx context.Context, req *Request, policy RetryPolicy) (*Response, error)
}

// Request describes one logical call. The client never mutates it and
// rebuilds a fresh *http.Request from it for every attempt.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Auth    *BasicAuth
}

// RetryPolicy bounds how long the client keeps retrying.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay seeds the exponential backoff: BaseDelay * 2^attempt.
	BaseDelay time.Duration
	// MaxJitter caps the uniform jitter added to rate-limit waits
	// that carry no usable Retry-After header.
	MaxJitter time.Duration
}

const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = time.Second
	DefaultMaxJitter  = time.Second
)

// DefaultRetryPolicy returns 5 retries, a 1s base delay and up to 1s of jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
	Attempts    int
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	Timeout              time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of request and response bodies
	LogPayloads bool
	// TraceIDHeader is the header used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
}
