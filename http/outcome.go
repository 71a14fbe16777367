package http

import (
	"errors"
	"io"
	"net"
	nethttp "net/http"
)

// OutcomeKind tags the result of a single attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeNetworkError
	OutcomeTerminal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// AttemptOutcome is everything the retry loop needs to decide what to do next.
type AttemptOutcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	// RetryAfter is the raw Retry-After header of a 429 response.
	RetryAfter string
	// Err is the transport failure for OutcomeNetworkError, or a body read
	// failure attached to an OutcomeTerminal response.
	Err error
}

// classify turns the result of one round trip into an AttemptOutcome. It
// consumes and closes resp.Body.
func classify(resp *nethttp.Response, err error) AttemptOutcome {
	if err != nil {
		return AttemptOutcome{Kind: OutcomeNetworkError, Err: err}
	}
	defer resp.Body.Close()

	out := AttemptOutcome{StatusCode: resp.StatusCode, Headers: resp.Header}
	body, readErr := io.ReadAll(resp.Body)
	out.Body = body

	switch {
	case IsSuccessStatus(resp.StatusCode):
		if readErr != nil {
			// The response was cut off mid-stream; treat it like any other transport failure.
			out.Kind = OutcomeNetworkError
			out.Err = readErr
			return out
		}
		out.Kind = OutcomeSuccess
	case resp.StatusCode == nethttp.StatusTooManyRequests:
		out.Kind = OutcomeRateLimited
		out.RetryAfter = resp.Header.Get("Retry-After")
	default:
		out.Kind = OutcomeTerminal
		out.Err = readErr
	}
	return out
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
