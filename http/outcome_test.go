package http

import (
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBodyCut = errors.New("connection reset mid-body")

type failingBody struct {
	data   io.Reader
	closed bool
}

func (b *failingBody) Read(p []byte) (int, error) {
	n, err := b.data.Read(p)
	if err == io.EOF {
		return n, errBodyCut
	}
	return n, err
}

func (b *failingBody) Close() error {
	b.closed = true
	return nil
}

func response(status int, body string, header nethttp.Header) *nethttp.Response {
	if header == nil {
		header = nethttp.Header{}
	}
	return &nethttp.Response{StatusCode: status, Header: header, Body: io.NopCloser(strings.NewReader(body))}
}

func TestClassify(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		out := classify(nil, errConnRefused)
		assert.Equal(t, OutcomeNetworkError, out.Kind)
		assert.ErrorIs(t, out.Err, errConnRefused)
	})

	t.Run("success", func(t *testing.T) {
		out := classify(response(201, okBody, nil), nil)
		assert.Equal(t, OutcomeSuccess, out.Kind)
		assert.Equal(t, okBody, string(out.Body))
		assert.NoError(t, out.Err)
	})

	t.Run("rate limited", func(t *testing.T) {
		out := classify(response(429, "", nethttp.Header{"Retry-After": {"4"}}), nil)
		assert.Equal(t, OutcomeRateLimited, out.Kind)
		assert.Equal(t, "4", out.RetryAfter)
	})

	for _, status := range []int{400, 401, 404, 409, 500, 502} {
		out := classify(response(status, "nope", nil), nil)
		assert.Equal(t, OutcomeTerminal, out.Kind, "status %d", status)
		assert.Equal(t, "nope", string(out.Body))
	}

	t.Run("terminal body read failure stays terminal", func(t *testing.T) {
		body := &failingBody{data: strings.NewReader("partial")}
		out := classify(&nethttp.Response{StatusCode: 500, Header: nethttp.Header{}, Body: body}, nil)
		assert.Equal(t, OutcomeTerminal, out.Kind)
		assert.ErrorIs(t, out.Err, errBodyCut)
		assert.Equal(t, "partial", string(out.Body))
		assert.True(t, body.closed)
	})

	t.Run("truncated success body is a network error", func(t *testing.T) {
		body := &failingBody{data: strings.NewReader(`{"id":`)}
		out := classify(&nethttp.Response{StatusCode: 200, Header: nethttp.Header{}, Body: body}, nil)
		assert.Equal(t, OutcomeNetworkError, out.Kind)
		assert.ErrorIs(t, out.Err, errBodyCut)
	})
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "rate_limited", OutcomeRateLimited.String())
	assert.Equal(t, "network_error", OutcomeNetworkError.String())
	assert.Equal(t, "terminal", OutcomeTerminal.String())
	assert.Equal(t, "unknown", OutcomeKind(42).String())
}

// stubTransport returns a canned response for every round trip.
type stubTransport struct {
	status int
	body   func() io.ReadCloser
}

func (s stubTransport) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	return &nethttp.Response{
		StatusCode: s.status,
		Header:     nethttp.Header{},
		Body:       s.body(),
		Request:    req,
	}, nil
}

func TestTerminalBodyReadFailureIsAttached(t *testing.T) {
	rt := stubTransport{status: 502, body: func() io.ReadCloser {
		return &failingBody{data: strings.NewReader("bad gateway")}
	}}
	c, rec := newTestClient(NewBuilder(nil).WithTransport(rt))

	_, err := c.Execute(t.Context(), &Request{URL: "https://api.example.com"}, testPolicy(3))
	require.Error(t, err)
	assert.True(t, IsHTTPStatusError(err, 502))
	assert.ErrorIs(t, err, errBodyCut)
	assert.False(t, IsErrorType(err, NetworkError))
	assert.Empty(t, rec.recorded())
}
