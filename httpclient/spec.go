package httpclient

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/reqflow/util"
)

// CredentialsMode controls whether cookies travel with a request.
type CredentialsMode string

const (
	// CredentialsSameOrigin keeps cookies for the request's own host only.
	CredentialsSameOrigin CredentialsMode = "same-origin"
	// CredentialsOmit never sends or stores cookies.
	CredentialsOmit CredentialsMode = "omit"
	// CredentialsInclude sends and stores cookies for any host the transport's jar accepts.
	CredentialsInclude CredentialsMode = "include"
)

// RedirectMode controls how the transport treats 3xx responses.
type RedirectMode string

const (
	// RedirectFollow follows redirects.
	RedirectFollow RedirectMode = "follow"
	// RedirectError fails the attempt on the first redirect.
	RedirectError RedirectMode = "error"
	// RedirectManual returns the 3xx response as-is.
	RedirectManual RedirectMode = "manual"
)

// Attachment is a file part of a multipart/form-data body.
type Attachment struct {
	// Name is the form field name.
	Name string
	// FileName is sent in the Content-Disposition header when set.
	FileName string
	// ContentType is the part's MIME type. Defaults to application/octet-stream for files.
	ContentType string
	// Data is the part content. Used when Reader is nil.
	Data []byte
	// Reader is read fully once, when the body is encoded.
	Reader io.Reader
}

// RequestSpec describes one logical request. It is produced by a Builder (or
// assembled by hand) and treated as read-only by the engine, which works on a
// private copy.
type RequestSpec struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values

	// Body is nil for "no payload". Structured values are JSON-encoded (or
	// form-encoded when Content-Type says so); anything else is stringified.
	Body        any
	Attachments []Attachment
	// Form holds multipart form fields. Setting it forces multipart encoding.
	Form url.Values

	// Timeout bounds each attempt. When zero, ResponseTimeout is used.
	Timeout         time.Duration
	ResponseTimeout time.Duration

	// Retry is the retry policy. Nil means DefaultRetryPolicy (no retries).
	Retry *RetryPolicy
	Hooks Hooks

	// ThrowHTTPErrors turns non-2xx responses into *HTTPError. Nil means true.
	ThrowHTTPErrors *bool

	JSONMarshal   func(v any) ([]byte, error)
	JSONUnmarshal func(data []byte, v any) error

	Credentials CredentialsMode
	Redirect    RedirectMode

	// Auth runs ahead of the before-request hooks on every attempt.
	Auth *AuthConfig

	// MaxResponseSize caps the response body in bytes. Zero means no cap.
	MaxResponseSize int64

	// Signal is an external cancellation token shared with the caller.
	Signal *Signal
	// Transport overrides the engine's transport for this request.
	Transport Transport
}

// Clone returns a deep copy of the spec's mutable containers.
func (s RequestSpec) Clone() RequestSpec {
	out := s
	out.Header = s.Header.Clone()
	out.Query = cloneValues(s.Query)
	out.Form = cloneValues(s.Form)
	if s.Attachments != nil {
		out.Attachments = append([]Attachment(nil), s.Attachments...)
	}
	if s.Retry != nil {
		p := s.Retry.clone()
		out.Retry = &p
	}
	if s.ThrowHTTPErrors != nil {
		out.ThrowHTTPErrors = util.Ptr(*s.ThrowHTTPErrors)
	}
	out.Hooks = s.Hooks.clone()
	return out
}

func (s *RequestSpec) method() string {
	if s.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(s.Method)
}

func (s *RequestSpec) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return s.ResponseTimeout
}

func (s *RequestSpec) throwHTTPErrors() bool {
	return s.ThrowHTTPErrors == nil || *s.ThrowHTTPErrors
}

func (s *RequestSpec) retryPolicy() RetryPolicy {
	if s.Retry == nil {
		return DefaultRetryPolicy()
	}
	return s.Retry.withDefaults()
}

func (s *RequestSpec) credentials() CredentialsMode {
	if s.Credentials == "" {
		return CredentialsSameOrigin
	}
	return s.Credentials
}

func (s *RequestSpec) redirect() RedirectMode {
	if s.Redirect == "" {
		return RedirectFollow
	}
	return s.Redirect
}

// RequestContext is the mutable request handed to before-request hooks. One
// instance lives for the whole logical request, so header or query changes
// made on one attempt carry over to the next.
type RequestContext struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	// Body is the encoded payload. It is encoded once, before the first attempt.
	Body []byte
	// Attempt is the 1-based attempt number.
	Attempt int
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// appendQuery appends encoded query parameters to rawURL, joining with "?" or
// "&" depending on whether rawURL already carries a query.
func appendQuery(rawURL string, q url.Values) string {
	if len(q) == 0 {
		return rawURL
	}

	fragment := ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL, fragment = rawURL[:i], rawURL[i:]
	}

	encoded := q.Encode()
	switch {
	case !strings.Contains(rawURL, "?"):
		rawURL += "?" + encoded
	case strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&"):
		rawURL += encoded
	default:
		rawURL += "&" + encoded
	}
	return rawURL + fragment
}
