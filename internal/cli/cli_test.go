package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/reqflow/logger"
	"github.com/kbukum/reqflow/testutil"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("REQFLOW_LOGGING_OUTPUT", "discard")
	t.Setenv("REQFLOW_HTTP_RETRY_INITIAL_DELAY", "5ms")

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func startServer(t *testing.T) *testutil.MockServer {
	t.Helper()
	srv := testutil.NewMockServer("api")
	testutil.T(t).Setup(srv)
	return srv
}

func TestRequest_Get(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/users", testutil.JSONReply(200, map[string]string{"name": "ada"}))

	res := run(t, "", "request", "get", srv.URL()+"/users", "-q", "page=2", "-H", "X-Trace: abc")
	require.NoError(t, res.err)
	assert.Equal(t, "{\"name\":\"ada\"}\n", res.stdout)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "page=2", reqs[0].RawQuery)
	assert.Equal(t, "abc", reqs[0].Header.Get("X-Trace"))
	assert.NotEmpty(t, reqs[0].Header.Get("X-Request-Id"))
}

func TestRequest_PostJSON(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodPost, "/users", testutil.Reply{Status: 201})

	res := run(t, "", "request", "POST", srv.URL()+"/users", "--json", "-d", `{"name":"ada"}`)
	require.NoError(t, res.err)

	req := srv.Requests()[0]
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"ada"}`, string(req.Body))
}

func TestRequest_DataFromStdin(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodPut, "/notes/1", testutil.Reply{Status: 204})

	res := run(t, "hello from stdin", "request", "PUT", srv.URL()+"/notes/1", "-d", "@-")
	require.NoError(t, res.err)
	assert.Equal(t, "hello from stdin", string(srv.Requests()[0].Body))
	assert.Empty(t, res.stdout)
}

func TestRequest_InvalidJSONData(t *testing.T) {
	res := run(t, "", "request", "POST", "http://127.0.0.1:1/x", "--json", "-d", "{nope")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsage, ExitCode(res.err))
}

func TestRequest_Multipart(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodPost, "/upload", testutil.Reply{Status: 200})

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0o600))

	res := run(t, "", "request", "POST", srv.URL()+"/upload", "-F", "name=ada", "-F", "file=@"+path)
	require.NoError(t, res.err)

	req := srv.Requests()[0]
	assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.Contains(t, string(req.Body), "ada")
	assert.Contains(t, string(req.Body), `filename="note.txt"`)
	assert.Contains(t, string(req.Body), "file contents")
}

func TestRequest_RetriesThenSucceeds(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/jobs", testutil.Reply{Status: 503}, testutil.Reply{Status: 200, Body: "done"})

	res := run(t, "", "request", "GET", srv.URL()+"/jobs", "--retry", "1")
	require.NoError(t, res.err)
	assert.Equal(t, "done\n", res.stdout)
	assert.Equal(t, 2, srv.Hits(http.MethodGet, "/jobs"))
}

func TestRequest_HTTPError(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/gone", testutil.JSONReply(404, map[string]string{"error": "gone"}))

	res := run(t, "", "request", "GET", srv.URL()+"/gone")
	require.Error(t, res.err)
	assert.Equal(t, ExitHTTP, ExitCode(res.err))
	assert.False(t, IsSilent(res.err))
	assert.Contains(t, res.stdout, `"error":"gone"`)
}

func TestRequest_HTTPErrorAsJSON(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/gone", testutil.Reply{Status: 404})

	res := run(t, "", "request", "GET", srv.URL()+"/gone", "--error-format", "json")
	require.Error(t, res.err)
	assert.Equal(t, ExitHTTP, ExitCode(res.err))
	assert.True(t, IsSilent(res.err))

	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.EqualValues(t, 404, body.Error.Details["status_code"])
}

func TestRequest_NoFail(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/broken", testutil.Reply{Status: 500, Body: "boom"})

	res := run(t, "", "request", "GET", srv.URL()+"/broken", "--no-fail", "--retry", "0")
	require.NoError(t, res.err)
	assert.Equal(t, "boom\n", res.stdout)
}

func TestRequest_Timeout(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/slow", testutil.Reply{Status: 200, Delay: time.Second})

	res := run(t, "", "request", "GET", srv.URL()+"/slow", "--timeout", "20ms", "--retry", "0")
	require.Error(t, res.err)
	assert.Equal(t, ExitTimeout, ExitCode(res.err))
}

func TestRequest_TransportError(t *testing.T) {
	res := run(t, "", "request", "GET", "http://127.0.0.1:1/unreachable", "--retry", "0")
	require.Error(t, res.err)
	assert.Equal(t, ExitTransport, ExitCode(res.err))
}

func TestRequest_IncludeHeaders(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/ping", testutil.Reply{Status: 200, Header: map[string]string{"X-Served-By": "mock"}, Body: "pong"})

	res := run(t, "", "request", "GET", srv.URL()+"/ping", "-i")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "200 OK\n"), res.stdout)
	assert.Contains(t, res.stdout, "x-served-by: mock\n")
	assert.True(t, strings.HasSuffix(res.stdout, "\npong\n"))
}

func TestRequest_OutputJSON(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/users/1", testutil.JSONReply(200, map[string]any{"id": 1}))

	res := run(t, "", "request", "GET", srv.URL()+"/users/1", "-o", "json")
	require.NoError(t, res.err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.EqualValues(t, 200, view["status_code"])
	assert.Equal(t, true, view["ok"])
	assert.Equal(t, map[string]any{"id": float64(1)}, view["body"])
}

func TestRequest_Auth(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/me", testutil.Reply{Status: 200})

	res := run(t, "", "request", "GET", srv.URL()+"/me", "--bearer", "tok")
	require.NoError(t, res.err)
	assert.Equal(t, "Bearer tok", srv.Requests()[0].Header.Get("Authorization"))

	res = run(t, "", "request", "GET", srv.URL()+"/me", "-u", "ada:secret")
	require.NoError(t, res.err)
	user, pass, ok := (&http.Request{Header: srv.Requests()[1].Header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "ada", user)
	assert.Equal(t, "secret", pass)
}

func TestRequest_CallerRequestID(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/jobs", testutil.Reply{Status: 503}, testutil.Reply{Status: 200})

	id := "6F1C2A9E-3B7D-4C55-9A0E-2D8F4B1C7E30"
	res := run(t, "", "request", "GET", srv.URL()+"/jobs", "--request-id", id, "--retry", "1")
	require.NoError(t, res.err)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Equal(t, strings.ToLower(id), r.Header.Get("X-Request-Id"))
	}
}

func TestRequest_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing url", []string{"request", "GET"}},
		{"unknown flag", []string{"request", "GET", "http://x", "--bogus"}},
		{"bad output", []string{"request", "GET", "http://x", "-o", "xml"}},
		{"bad header", []string{"request", "GET", "http://127.0.0.1:1", "-H", "nocolon"}},
		{"data and form", []string{"request", "POST", "http://x", "-d", "a", "-F", "b=c"}},
		{"bearer and user", []string{"request", "GET", "http://x", "--bearer", "t", "-u", "a:b"}},
		{"bad request id", []string{"request", "GET", "http://x", "--request-id", "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, "", tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, ExitUsage, ExitCode(res.err))
		})
	}
}

func TestRequest_ConfigFileAndEnv(t *testing.T) {
	srv := startServer(t)
	srv.On(http.MethodGet, "/v1/status", testutil.Reply{Status: 200, Body: "ok"})

	path := filepath.Join(t.TempDir(), "reqflow.yaml")
	cfg := "name: gateway\nhttp:\n  base_url: " + srv.URL() + "/v1\n  headers:\n    X-Team: core\nauth:\n  type: bearer\n  token: from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	t.Setenv("REQFLOW_AUTH_TOKEN", "from-env")

	res := run(t, "", "--config", path, "request", "GET", "status")
	require.NoError(t, res.err)
	assert.Equal(t, "ok\n", res.stdout)

	req := srv.Requests()[0]
	assert.Equal(t, "core", req.Header.Get("X-Team"))
	assert.Equal(t, "Bearer from-env", req.Header.Get("Authorization"))
}

func TestRequest_InvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reqflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  type: bearer\n"), 0o600))

	res := run(t, "", "--config", path, "request", "GET", "http://127.0.0.1:1")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsage, ExitCode(res.err))
	assert.Contains(t, res.err.Error(), "auth.token")
}

func TestCheck(t *testing.T) {
	t.Setenv("REQFLOW_HTTP_BASE_URL", "https://api.example.com")
	t.Setenv("REQFLOW_AUTH_TYPE", "bearer")
	t.Setenv("REQFLOW_AUTH_TOKEN", "supersecret")

	res := run(t, "", "check")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "reqflow (development)")
	assert.Contains(t, res.stdout, "http-client")
	assert.Contains(t, res.stdout, "https://api.example.com")
	assert.Contains(t, res.stdout, "auth: bearer supe***")
	assert.NotContains(t, res.stdout, "supersecret")
	assert.Contains(t, res.stdout, "telemetry")
	assert.Contains(t, res.stdout, "inactive")
	assert.Contains(t, res.stdout, "status: up")
}

func TestCheck_JSON(t *testing.T) {
	t.Setenv("REQFLOW_HTTP_BASE_URL", "https://api.example.com")

	res := run(t, "", "check", "--json")
	require.NoError(t, res.err)

	var report struct {
		Service    string `json:"service"`
		Status     string `json:"status"`
		Components []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "reqflow", report.Service)
	assert.Equal(t, "up", report.Status)
	require.Len(t, report.Components, 1)
	assert.Equal(t, "http", report.Components[0].Name)
	assert.Equal(t, "up", report.Components[0].Status)
}

func TestSession_RegistersComponentLoggers(t *testing.T) {
	res := run(t, "", "check")
	require.NoError(t, res.err)
	names := logger.Registered()
	assert.Contains(t, names, "cli")
	assert.Contains(t, names, "http")
}

func TestVersion(t *testing.T) {
	res := run(t, "", "version")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "reqflow dev"), res.stdout)
	assert.Contains(t, res.stdout, "platform:")

	res = run(t, "", "version", "--json")
	require.NoError(t, res.err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, ExitCode(assert.AnError))
	assert.Equal(t, 7, ExitCode(&ExitError{Code: 7, Err: assert.AnError}))
	assert.False(t, IsSilent(assert.AnError))
}
