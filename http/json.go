package http

import (
	"bytes"
	"context"
	"encoding/json"
)

// DoJSON executes req and decodes a successful body into T. An empty body
// yields the zero value of T.
func DoJSON[T any](ctx context.Context, c Client, req *Request, policy RetryPolicy) (T, error) {
	var out T

	resp, err := c.Execute(ctx, req, policy)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, NewDecodeError(resp.StatusCode, resp.Body, err)
	}
	return out, nil
}

// JSONRequest marshals payload and returns a request carrying it with a JSON
// content type.
func JSONRequest(method, url string, payload any, headers map[string]string) (*Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewValidationError("failed to encode request body: "+err.Error(), "body")
	}

	h := make(map[string]string, len(headers)+2)
	h["Content-Type"] = "application/json"
	h["Accept"] = "application/json"
	for k, v := range headers {
		h[k] = v
	}
	return &Request{Method: method, URL: url, Headers: h, Body: body}, nil
}
