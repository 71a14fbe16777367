// Package http executes outbound HTTP requests with a bounded, rate-limit
// aware retry loop.
//
// Every attempt is classified into exactly one outcome:
//   - 2xx: success, the response is returned.
//   - 429: rate limited. The wait honors Retry-After (delta-seconds or an
//     HTTP date, clamped at zero) and otherwise is BaseDelay * 2^attempt plus
//     uniform jitter in [0, MaxJitter].
//   - transport failure before a response: network error, retried after
//     BaseDelay * 2^attempt with no jitter.
//   - any other status: terminal, returned immediately as an HTTP error
//     carrying the status and body.
//
// When the last allowed attempt (MaxRetries + 1 in total) is rate limited or
// fails at the transport level, the result is an exhausted-retries error
// wrapping the last failure. Canceling the context aborts the in-flight
// request and any pending wait.
//
// Request bodies are re-sent by rebuilding the http.Request on each attempt.
// Interceptor errors are not retried and are surfaced immediately.
package http
