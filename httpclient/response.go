package httpclient

import (
	"encoding/json"
	"fmt"
	"maps"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Response is the normalized result of one HTTP exchange.
type Response struct {
	StatusCode int
	// OK is true for 2xx statuses.
	OK bool
	// Status is the status text, e.g. "Not Found".
	Status string
	// Header holds lower-cased header names; repeated values are joined with ", ".
	Header      map[string]string
	ContentType string
	Charset     string
	// Text is the raw response body.
	Text string
	// Body is the JSON-decoded body when the content type is JSON and
	// decoding succeeds, otherwise Text.
	Body any

	unmarshal func([]byte, any) error
}

func newResponse(statusCode int, status string, header http.Header, body []byte, unmarshal func([]byte, any) error) *Response {
	if unmarshal == nil {
		unmarshal = json.Unmarshal
	}

	r := &Response{
		StatusCode: statusCode,
		OK:         statusCode >= 200 && statusCode < 300,
		Status:     statusText(statusCode, status),
		Header:     NormalizeHeader(header),
		Text:       string(body),
		unmarshal:  unmarshal,
	}
	r.ContentType, r.Charset = parseContentType(header.Get(headerContentType))

	r.Body = r.Text
	if len(body) > 0 && strings.Contains(r.ContentType, "json") {
		var decoded any
		if err := unmarshal(body, &decoded); err == nil {
			r.Body = decoded
		}
	}
	return r
}

// Decode unmarshals the raw body into v with the request's JSON codec.
func (r *Response) Decode(v any) error {
	unmarshal := r.unmarshal
	if unmarshal == nil {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal([]byte(r.Text), v); err != nil {
		return fmt.Errorf("httpclient: decode response: %w", err)
	}
	return nil
}

// Clone returns a copy whose header map can be modified independently.
// Useful for after-response hooks that return a replacement.
func (r *Response) Clone() *Response {
	out := *r
	out.Header = maps.Clone(r.Header)
	return &out
}

// NormalizeHeader flattens h into a map keyed by lower-cased names.
func NormalizeHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

// statusText strips the numeric prefix net/http puts on Status ("404 Not Found").
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return text
}

func parseContentType(v string) (mediaType, charset string) {
	if v == "" {
		return "", ""
	}
	mt, params, err := mime.ParseMediaType(v)
	if err != nil {
		mt, _, _ = strings.Cut(v, ";")
		return strings.ToLower(strings.TrimSpace(mt)), ""
	}
	return mt, strings.ToLower(params["charset"])
}
