package httpclient

import (
	"context"
	"net/http"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers http.Header
	// Data is the decoded response body.
	Data T
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](ctx context.Context, c *Client, path string) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body and decodes the response into type T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c, http.MethodPut, path, body)
}

// Delete performs a DELETE request and decodes the JSON response into type T.
func Delete[T any](ctx context.Context, c *Client, path string) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c, http.MethodDelete, path, nil)
}

func doTyped[T any](ctx context.Context, c *Client, method, path string, body any) (*TypedResponse[T], error) {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return nil, err
	}

	typed := &TypedResponse[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
	}
	if !resp.IsSuccess() {
		return typed, &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if err := resp.DecodeJSON(&typed.Data); err != nil {
		return typed, err
	}
	return typed, nil
}
