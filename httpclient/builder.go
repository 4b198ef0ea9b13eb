package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var defaultEngine = sync.OnceValue(func() *Engine { return NewEngine(nil) })

// Builder accumulates a RequestSpec through chained setters. A Builder is
// not safe for concurrent use, but Build copies its state so one builder can
// produce several independent specs.
type Builder struct {
	spec   RequestSpec
	client *Client
}

// NewRequest starts a builder for a standalone request. Send uses a shared
// engine with a default NetTransport.
func NewRequest(method, rawURL string) *Builder {
	return &Builder{spec: RequestSpec{
		Method: method,
		URL:    rawURL,
		Header: make(http.Header),
		Query:  make(url.Values),
	}}
}

// Header sets a header, replacing existing values.
func (b *Builder) Header(key, value string) *Builder {
	b.spec.Header.Set(key, value)
	return b
}

// Headers sets several headers.
func (b *Builder) Headers(h map[string]string) *Builder {
	for k, v := range h {
		b.spec.Header.Set(k, v)
	}
	return b
}

// Query adds a query parameter.
func (b *Builder) Query(key, value string) *Builder {
	b.spec.Query.Add(key, value)
	return b
}

// QueryValues adds all of v to the query.
func (b *Builder) QueryValues(v url.Values) *Builder {
	for k, vs := range v {
		for _, s := range vs {
			b.spec.Query.Add(k, s)
		}
	}
	return b
}

// Body sets the payload. See RequestSpec.Body for the encoding rules.
func (b *Builder) Body(v any) *Builder {
	b.spec.Body = v
	return b
}

// JSON sets a structured payload and marks it as JSON.
func (b *Builder) JSON(v any) *Builder {
	b.spec.Body = v
	b.spec.Header.Set(headerContentType, mimeJSON)
	return b
}

// Form sets a URL-encoded payload.
func (b *Builder) Form(v url.Values) *Builder {
	b.spec.Body = v
	b.spec.Header.Set(headerContentType, mimeFormURL)
	return b
}

// Field adds a multipart form field.
func (b *Builder) Field(key, value string) *Builder {
	if b.spec.Form == nil {
		b.spec.Form = make(url.Values)
	}
	b.spec.Form.Add(key, value)
	return b
}

// Attach adds a multipart file part.
func (b *Builder) Attach(name, fileName, contentType string, data []byte) *Builder {
	b.spec.Attachments = append(b.spec.Attachments, Attachment{
		Name: name, FileName: fileName, ContentType: contentType, Data: data,
	})
	return b
}

// AttachReader adds a multipart file part read from r when the body is encoded.
func (b *Builder) AttachReader(name, fileName, contentType string, r io.Reader) *Builder {
	b.spec.Attachments = append(b.spec.Attachments, Attachment{
		Name: name, FileName: fileName, ContentType: contentType, Reader: r,
	})
	return b
}

// Timeout bounds each attempt.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.spec.Timeout = d
	return b
}

// MaxResponseSize caps the response body in bytes.
func (b *Builder) MaxResponseSize(n int64) *Builder {
	b.spec.MaxResponseSize = n
	return b
}

// ResponseTimeout is used when Timeout is unset.
func (b *Builder) ResponseTimeout(d time.Duration) *Builder {
	b.spec.ResponseTimeout = d
	return b
}

// Retry sets the retry policy.
func (b *Builder) Retry(p RetryPolicy) *Builder {
	b.spec.Retry = &p
	return b
}

// RetryLimit sets the default policy with the given number of retries.
func (b *Builder) RetryLimit(n int) *Builder {
	b.spec.Retry = Retries(n)
	return b
}

// BeforeRequest appends before-request hooks.
func (b *Builder) BeforeRequest(hooks ...BeforeRequestHook) *Builder {
	b.spec.Hooks.BeforeRequest = append(b.spec.Hooks.BeforeRequest, hooks...)
	return b
}

// AfterResponse appends after-response hooks.
func (b *Builder) AfterResponse(hooks ...AfterResponseHook) *Builder {
	b.spec.Hooks.AfterResponse = append(b.spec.Hooks.AfterResponse, hooks...)
	return b
}

// BeforeRetry appends before-retry hooks.
func (b *Builder) BeforeRetry(hooks ...BeforeRetryHook) *Builder {
	b.spec.Hooks.BeforeRetry = append(b.spec.Hooks.BeforeRetry, hooks...)
	return b
}

// BeforeError appends before-error hooks.
func (b *Builder) BeforeError(hooks ...BeforeErrorHook) *Builder {
	b.spec.Hooks.BeforeError = append(b.spec.Hooks.BeforeError, hooks...)
	return b
}

// ThrowHTTPErrors controls whether non-2xx responses become *HTTPError.
func (b *Builder) ThrowHTTPErrors(v bool) *Builder {
	b.spec.ThrowHTTPErrors = &v
	return b
}

// Credentials sets the cookie mode.
func (b *Builder) Credentials(m CredentialsMode) *Builder {
	b.spec.Credentials = m
	return b
}

// Redirect sets the redirect mode.
func (b *Builder) Redirect(m RedirectMode) *Builder {
	b.spec.Redirect = m
	return b
}

// Signal attaches an external cancellation token.
func (b *Builder) Signal(s *Signal) *Builder {
	b.spec.Signal = s
	return b
}

// Transport overrides the transport for this request.
func (b *Builder) Transport(t Transport) *Builder {
	b.spec.Transport = t
	return b
}

// JSONCodec replaces encoding/json for this request.
func (b *Builder) JSONCodec(marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) *Builder {
	b.spec.JSONMarshal = marshal
	b.spec.JSONUnmarshal = unmarshal
	return b
}

// Auth sets request authentication, overriding the client's.
func (b *Builder) Auth(a *AuthConfig) *Builder {
	b.spec.Auth = a
	return b
}

// Build returns an independent copy of the accumulated spec.
func (b *Builder) Build() RequestSpec {
	return b.spec.Clone()
}

// Send executes the request and waits for the outcome.
func (b *Builder) Send(ctx context.Context) (*Response, error) {
	if b.client != nil {
		return b.client.Do(ctx, b.Build())
	}
	return defaultEngine().Do(ctx, b.Build())
}

// Start executes the request in the background.
func (b *Builder) Start(ctx context.Context) *Call {
	if b.client != nil {
		return b.client.Start(ctx, b.Build())
	}
	return defaultEngine().Start(ctx, b.Build())
}

// Decode sends the request and decodes the response body into v.
func (b *Builder) Decode(ctx context.Context, v any) (*Response, error) {
	resp, err := b.Send(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(v); err != nil {
		return resp, err
	}
	return resp, nil
}
