package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/reqflow/security"
)

const defaultMaxRedirects = 10

// ErrRedirectNotAllowed is wrapped in the transport error when a redirect
// happens under RedirectError.
var ErrRedirectNotAllowed = errors.New("httpclient: redirect not allowed")

// ErrResponseTooLarge is wrapped by the TransportError raised when a body
// exceeds RequestSpec.MaxResponseSize.
var ErrResponseTooLarge = errors.New("httpclient: response body too large")

// OutgoingRequest is what the engine hands to a Transport for one attempt.
type OutgoingRequest struct {
	Method      string
	URL         string
	Header      http.Header
	Body        []byte
	Credentials CredentialsMode
	Redirect    RedirectMode
}

// Transport performs one network exchange. It must honor ctx cancellation
// and return the response with its body unread.
type Transport interface {
	Send(ctx context.Context, req *OutgoingRequest) (*http.Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *OutgoingRequest) (*http.Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *OutgoingRequest) (*http.Response, error) {
	return f(ctx, req)
}

// TransportConfig configures the default net/http transport.
type TransportConfig struct {
	// TLS configures the transport's TLS client settings.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	// MaxRedirects bounds RedirectFollow. Defaults to 10.
	MaxRedirects int `yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0"`
	// Jar overrides the cookie jar used for credentialed requests.
	Jar http.CookieJar `yaml:"-" mapstructure:"-"`
}

// NetTransport sends requests with net/http. Cookies are kept in one jar per
// transport and attached according to each request's CredentialsMode.
type NetTransport struct {
	roundTripper http.RoundTripper
	jar          http.CookieJar
	maxRedirects int
}

// NewNetTransport builds a transport from a clone of http.DefaultTransport.
func NewNetTransport(cfg TransportConfig) (*NetTransport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		base.TLSClientConfig = tlsCfg
	}

	jar := cfg.Jar
	if jar == nil {
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("httpclient: create cookie jar: %w", err)
		}
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}

	return &NetTransport{roundTripper: base, jar: jar, maxRedirects: maxRedirects}, nil
}

// Send implements Transport.
func (t *NetTransport) Send(ctx context.Context, req *OutgoingRequest) (*http.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	client := &http.Client{
		Transport:     t.roundTripper,
		CheckRedirect: t.checkRedirect(req.Redirect),
		Jar:           t.jarFor(req.Credentials, httpReq.URL),
	}
	return client.Do(httpReq)
}

// CloseIdleConnections releases idle keep-alive connections.
func (t *NetTransport) CloseIdleConnections() {
	if ci, ok := t.roundTripper.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

func (t *NetTransport) checkRedirect(mode RedirectMode) func(*http.Request, []*http.Request) error {
	switch mode {
	case RedirectManual:
		return func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	case RedirectError:
		return func(req *http.Request, _ []*http.Request) error {
			return fmt.Errorf("%w: %s", ErrRedirectNotAllowed, req.URL.Redacted())
		}
	default:
		return func(_ *http.Request, via []*http.Request) error {
			if len(via) >= t.maxRedirects {
				return fmt.Errorf("httpclient: stopped after %d redirects", t.maxRedirects)
			}
			return nil
		}
	}
}

func (t *NetTransport) jarFor(mode CredentialsMode, origin *url.URL) http.CookieJar {
	switch mode {
	case CredentialsOmit:
		return nil
	case CredentialsInclude:
		return t.jar
	default:
		return &originJar{jar: t.jar, origin: origin}
	}
}

// originJar only reads and writes cookies for URLs sharing the request origin.
type originJar struct {
	jar    http.CookieJar
	origin *url.URL
}

func (j *originJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if sameOrigin(u, j.origin) {
		j.jar.SetCookies(u, cookies)
	}
}

func (j *originJar) Cookies(u *url.URL) []*http.Cookie {
	if sameOrigin(u, j.origin) {
		return j.jar.Cookies(u)
	}
	return nil
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
