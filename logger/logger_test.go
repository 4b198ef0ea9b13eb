package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(buf, &Config{Level: level, Format: FormatJSON}, "test-svc")
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "debug").Info("hello", Fields("k", "v"))

	entry := lastEntry(t, &buf)
	if entry["message"] != "hello" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["service"] != "test-svc" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["k"] != "v" {
		t.Errorf("k = %v", entry["k"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")
	l.Debug("dropped")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Warn("kept")
	if entry := lastEntry(t, &buf); entry["message"] != "kept" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "invalid-level")
	l.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info, got %q", buf.String())
	}
	l.Info("kept")
	if buf.Len() == 0 {
		t.Fatal("info should pass")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", "discard")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if got := l.Zerolog().GetLevel().String(); got != "debug" {
		t.Errorf("level = %s, want debug", got)
	}
}

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_OUTPUT", "discard")

	l := NewFromEnv("svc")
	if got := l.Zerolog().GetLevel().String(); got != "info" {
		t.Errorf("level = %s, want info", got)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithComponent("httpclient").Info("x")
	if entry := lastEntry(t, &buf); entry[FieldComponent] != "httpclient" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithFields(map[string]interface{}{"a": "b", "n": 3}).Info("x")
	entry := lastEntry(t, &buf)
	if entry["a"] != "b" || entry["n"] != float64(3) {
		t.Errorf("fields missing: %v", entry)
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithError(errors.New("boom")).Error("failed")
	if entry := lastEntry(t, &buf); entry[FieldError] != "boom" {
		t.Errorf("error = %v", entry[FieldError])
	}
}

func TestWithContext_Span(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithContext(ctx).Info("traced")

	entry := lastEntry(t, &buf)
	if entry[FieldTraceID] != traceID.String() {
		t.Errorf("trace_id = %v", entry[FieldTraceID])
	}
	if entry[FieldSpanID] != spanID.String() {
		t.Errorf("span_id = %v", entry[FieldSpanID])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := jsonLogger(&bytes.Buffer{}, "info")
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected same logger without an active span")
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "info", Format: FormatConsole, NoColor: true}, "reqflow")
	l.Info("console line", Fields("status", 200))

	out := buf.String()
	for _, want := range []string{"[REQ]", "[INF]", "console line", "status:200"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestConsoleFormat_ShortServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "info", Format: FormatConsole, NoColor: true}, "ab")
	l.Warn("short")
	if out := buf.String(); !strings.Contains(out, "[WRN]") || strings.Contains(out, "[AB") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestTimestampAndCaller(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "info", Format: FormatJSON, Timestamp: true, Caller: true}, "")
	l.Info("x")
	entry := lastEntry(t, &buf)
	if _, ok := entry["time"]; !ok {
		t.Error("expected time field")
	}
	if _, ok := entry["caller"]; !ok {
		t.Error("expected caller field")
	}
	if _, ok := entry["service"]; ok {
		t.Error("empty service name should not be logged")
	}
}

func TestGlobalLogger(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	var buf bytes.Buffer
	SetGlobalLogger(jsonLogger(&buf, "debug"))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e", Fields("k", 1))
	WithComponent("comp").Info("c")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), buf.String())
	}
	if entry := lastEntry(t, &buf); entry[FieldComponent] != "comp" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
}

func TestGetGlobalLogger_Default(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger")
	}
}

func TestInit(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	cfg := &Config{ServiceName: "init-svc", Level: "warn", Output: "discard"}
	Init(cfg)

	l := GetGlobalLogger()
	if l.service != "init-svc" {
		t.Errorf("service = %q", l.service)
	}
	if got := l.Zerolog().GetLevel().String(); got != "warn" {
		t.Errorf("level = %s", got)
	}
	if cfg.Format != "" {
		t.Error("Init should not mutate the caller's config")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stdout" || !cfg.Timestamp {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: FormatJSON, Output: "stderr"}, false},
		{"discard", Config{Level: "disabled", Format: FormatPretty, Output: "discard"}, false},
		{"bad level", Config{Level: "loud", Format: FormatJSON, Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: FormatJSON, Output: "/var/log/x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").WithComponent("custom")
	Register("registered", l)

	if Get("registered") != l {
		t.Error("expected registered logger")
	}
	if Get("unregistered") == nil {
		t.Error("expected fallback logger")
	}
}

func TestRegisterDefaults(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	var buf bytes.Buffer
	SetGlobalLogger(jsonLogger(&buf, "info"))
	RegisterDefaults("alpha", "beta")

	Get("beta").Info("x")
	if entry := lastEntry(t, &buf); entry[FieldComponent] != "beta" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if names := Registered(); !slices.Contains(names, "alpha") || !slices.Contains(names, "beta") {
		t.Errorf("Registered = %v", names)
	}
}

func TestInit_RefreshesDefaults(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	RegisterDefaults("gamma")
	pinned := NewDefault("pinned")
	Register("delta", pinned)
	before := Get("gamma")

	Init(&Config{Level: "debug", Format: FormatJSON, Output: "discard"})

	if Get("gamma") == before {
		t.Error("Init should rebuild default loggers from the new global")
	}
	if Get("delta") != pinned {
		t.Error("Init must keep explicitly registered loggers")
	}
}

func TestFields(t *testing.T) {
	f := Fields("a", 1, "b", "two", 3, "skipped", "dangling")
	if len(f) != 2 || f["a"] != 1 || f["b"] != "two" {
		t.Errorf("Fields = %v", f)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("save", errors.New("bad"))
	if ef[FieldOperation] != "save" || ef[FieldError] != "bad" {
		t.Errorf("ErrorFields = %v", ef)
	}
	df := DurationFields("load", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("DurationFields = %v", df)
	}
}

func TestMergeHelpers(t *testing.T) {
	m := MergeWithError(nil, errors.New("x"))
	if m[FieldError] != "x" {
		t.Errorf("MergeWithError = %v", m)
	}
	m = MergeWithDuration(m, 2*time.Second)
	if m[FieldDuration] != int64(2000) || m[FieldError] != "x" {
		t.Errorf("MergeWithDuration = %v", m)
	}
}
