package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/reqflow/component"
)

// Reply is one scripted response.
type Reply struct {
	Status int
	Header map[string]string
	Body   string
	// Delay holds the response back. The wait ends early if the client goes away.
	Delay time.Duration
	// Location is sent as the Location header; Status defaults to 302 when set.
	Location string
	Cookies  []*http.Cookie
}

// JSONReply encodes v as a JSON reply.
func JSONReply(status int, v any) Reply {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode reply: %v", err))
	}
	return Reply{
		Status: status,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   string(data),
	}
}

// RecordedRequest is a request received by a MockServer.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
	Cookies  []*http.Cookie
	At       time.Time
}

type mockState struct {
	routes   map[string][]Reply
	hits     map[string]int
	requests []RecordedRequest
}

// MockServer is a scripted HTTP endpoint. It implements TestComponent.
type MockServer struct {
	name   string
	mu     sync.Mutex
	state  mockState
	server *httptest.Server
}

var _ TestComponent = (*MockServer)(nil)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewMockServer returns a stopped server.
func NewMockServer(name string) *MockServer {
	m := &MockServer{name: name}
	m.state = newMockState()
	return m
}

func newMockState() mockState {
	return mockState{routes: make(map[string][]Reply), hits: make(map[string]int)}
}

func routeKey(method, path string) string {
	return method + " " + path
}

// On scripts the replies for method and path. Replies are served in order and
// the last one repeats.
func (m *MockServer) On(method, path string, replies ...Reply) *MockServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.routes[routeKey(method, path)] = append([]Reply(nil), replies...)
	return m
}

// URL returns the server's base URL. Empty before Start.
func (m *MockServer) URL() string {
	if m.server == nil {
		return ""
	}
	return m.server.URL
}

// Requests returns a copy of the recorded requests.
func (m *MockServer) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.state.requests...)
}

// Hits returns how many requests reached method and path.
func (m *MockServer) Hits(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.hits[routeKey(method, path)]
}

// Name returns the component name.
func (m *MockServer) Name() string {
	return m.name
}

// Start serves the scripted routes on a loopback listener.
func (m *MockServer) Start(_ context.Context) error {
	if m.server != nil {
		return nil
	}
	m.server = httptest.NewServer(m.router())
	return nil
}

// StartTLS serves the scripted routes over TLS with the given server config.
func (m *MockServer) StartTLS(_ context.Context, configure func(*httptest.Server)) error {
	if m.server != nil {
		return nil
	}
	m.server = httptest.NewUnstartedServer(m.router())
	if configure != nil {
		configure(m.server)
	}
	m.server.StartTLS()
	return nil
}

// Stop closes the listener.
func (m *MockServer) Stop(_ context.Context) error {
	if m.server != nil {
		m.server.Close()
		m.server = nil
	}
	return nil
}

// Health reports whether the server is listening.
func (m *MockServer) Health(_ context.Context) component.Health {
	status := component.StatusHealthy
	if m.server == nil {
		status = component.StatusUnhealthy
	}
	return component.Health{Name: m.name, Status: status}
}

// Reset drops all routes and recorded requests.
func (m *MockServer) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newMockState()
	return nil
}

// Snapshot captures routes, hit counts and recorded requests.
func (m *MockServer) Snapshot(_ context.Context) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.copy(), nil
}

// Restore returns to a state captured by Snapshot.
func (m *MockServer) Restore(_ context.Context, snapshot any) error {
	s, ok := snapshot.(mockState)
	if !ok {
		return fmt.Errorf("testutil: unexpected snapshot type %T", snapshot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s.copy()
	return nil
}

func (s mockState) copy() mockState {
	out := newMockState()
	for k, v := range s.routes {
		out.routes[k] = append([]Reply(nil), v...)
	}
	for k, v := range s.hits {
		out.hits[k] = v
	}
	out.requests = append([]RecordedRequest(nil), s.requests...)
	return out
}

func (m *MockServer) router() *gin.Engine {
	router := gin.New()
	router.NoRoute(m.handle)
	return router
}

func (m *MockServer) handle(c *gin.Context) {
	body, _ := c.GetRawData()
	key := routeKey(c.Request.Method, c.Request.URL.Path)

	m.mu.Lock()
	m.state.requests = append(m.state.requests, RecordedRequest{
		Method:   c.Request.Method,
		Path:     c.Request.URL.Path,
		RawQuery: c.Request.URL.RawQuery,
		Header:   c.Request.Header.Clone(),
		Body:     body,
		Cookies:  c.Request.Cookies(),
		At:       time.Now(),
	})
	n := m.state.hits[key]
	m.state.hits[key] = n + 1
	replies := m.state.routes[key]
	m.mu.Unlock()

	if len(replies) == 0 {
		c.String(http.StatusNotFound, "no reply scripted for %s", key)
		return
	}
	reply := replies[min(n, len(replies)-1)]

	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-c.Request.Context().Done():
			return
		}
	}

	for k, v := range reply.Header {
		c.Header(k, v)
	}
	for _, ck := range reply.Cookies {
		http.SetCookie(c.Writer, ck)
	}

	status := reply.Status
	if reply.Location != "" {
		c.Header("Location", reply.Location)
		if status == 0 {
			status = http.StatusFound
		}
	}
	if status == 0 {
		status = http.StatusOK
	}

	c.Status(status)
	if reply.Body != "" {
		_, _ = c.Writer.WriteString(reply.Body)
	}
}
