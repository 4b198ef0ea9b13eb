package httpclient

import (
	"context"
	"net/http"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Header holds the normalized response headers.
	Header map[string]string
	// Data is the decoded response body.
	Data T
	// Raw is the full response envelope.
	Raw *Response
}

// GetJSON performs a GET request and decodes the JSON response into type T.
func GetJSON[T any](ctx context.Context, c *Client, path string) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c.Request(http.MethodGet, path))
}

// PostJSON performs a POST request with a JSON body and decodes the response into type T.
func PostJSON[T any](ctx context.Context, c *Client, path string, body any) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c.Request(http.MethodPost, path).JSON(body))
}

// PutJSON performs a PUT request with a JSON body and decodes the response into type T.
func PutJSON[T any](ctx context.Context, c *Client, path string, body any) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c.Request(http.MethodPut, path).JSON(body))
}

// PatchJSON performs a PATCH request with a JSON body and decodes the response into type T.
func PatchJSON[T any](ctx context.Context, c *Client, path string, body any) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c.Request(http.MethodPatch, path).JSON(body))
}

// DeleteJSON performs a DELETE request and decodes the JSON response into type T.
func DeleteJSON[T any](ctx context.Context, c *Client, path string) (*TypedResponse[T], error) {
	return doTyped[T](ctx, c.Request(http.MethodDelete, path))
}

// SendJSON sends b and decodes the JSON response into type T.
func SendJSON[T any](ctx context.Context, b *Builder) (*TypedResponse[T], error) {
	return doTyped[T](ctx, b)
}

func doTyped[T any](ctx context.Context, b *Builder) (*TypedResponse[T], error) {
	if b.spec.Header.Get("Accept") == "" {
		b.Header("Accept", mimeJSON)
	}

	resp, err := b.Send(ctx)
	if err != nil {
		return nil, err
	}

	var data T
	if resp.Text != "" {
		if err := resp.Decode(&data); err != nil {
			return nil, err
		}
	}

	return &TypedResponse[T]{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Data:       data,
		Raw:        resp,
	}, nil
}
