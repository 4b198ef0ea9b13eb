package component

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

type describedComponent struct {
	mockComponent
	desc Description
}

func (d *describedComponent) Describe() Description { return d.desc }

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockComponent{name: "api"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "api"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "api"})

	got := r.Get("api")
	if got == nil {
		t.Fatal("expected to get registered component")
	}
	if got.Name() != "api" {
		t.Errorf("expected 'api', got %q", got.Name())
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "a"})
	r.Register(&mockComponent{name: "b"})

	all := r.All()
	if len(all) != 2 || all[0].Name() != "a" || all[1].Name() != "b" {
		t.Errorf("unexpected components %v", all)
	}
}

func TestStartAll(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "mock-server", startOrder: &order})
	r.Register(&mockComponent{name: "api", startOrder: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if len(order) != 2 || order[0] != "mock-server" || order[1] != "api" {
		t.Errorf("expected start order [mock-server, api], got %v", order)
	}

	// Already-started components are not started twice.
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("second StartAll failed: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("expected no restarts, got %v", order)
	}
}

func TestStartAllErrorRollsBack(t *testing.T) {
	r := NewRegistry()
	startErr := fmt.Errorf("dial refused")
	stops := []string{}
	r.Register(&mockComponent{name: "first", stopOrder: &stops})
	r.Register(&mockComponent{name: "second", stopOrder: &stops})
	r.Register(&mockComponent{name: "broken", startErr: startErr, stopOrder: &stops})

	err := r.StartAll(context.Background())
	if !errors.Is(err, startErr) {
		t.Fatalf("expected start error, got %v", err)
	}
	if len(stops) != 2 || stops[0] != "second" || stops[1] != "first" {
		t.Errorf("expected rollback [second, first], got %v", stops)
	}

	// Nothing is left running.
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(stops) != 2 {
		t.Errorf("expected no further stops, got %v", stops)
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "a", stopOrder: &order})
	r.Register(&mockComponent{name: "b", stopOrder: &order})
	r.Register(&mockComponent{name: "c", stopOrder: &order})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "b" || order[2] != "a" {
		t.Errorf("expected reverse stop order [c, b, a], got %v", order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "api", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry()
	stopErr := fmt.Errorf("stop failed")
	order := []string{}
	r.Register(&mockComponent{name: "a", stopOrder: &order})
	r.Register(&mockComponent{name: "b", stopErr: stopErr, stopOrder: &order})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, stopErr) {
		t.Errorf("expected stop error, got %v", err)
	}
	if len(order) != 2 {
		t.Errorf("a failing stop should not skip the rest, got %v", order)
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{
		name:   "api",
		health: Health{Name: "api", Status: StatusHealthy},
	})
	r.Register(&mockComponent{
		name:   "billing",
		health: Health{Name: "billing", Status: StatusUnhealthy, Message: "circuit open"},
	})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy {
		t.Errorf("expected api healthy, got %s", results[0].Status)
	}
	if results[1].Status != StatusUnhealthy || results[1].Message != "circuit open" {
		t.Errorf("unexpected billing health %+v", results[1])
	}
}

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	r.Register(&describedComponent{
		mockComponent: mockComponent{name: "api"},
		desc:          Description{Type: "http-client", Details: "https://api.example.com"},
	})
	r.Register(&mockComponent{name: "plain"})

	got := r.Describe()
	if len(got) != 2 {
		t.Fatalf("expected 2 descriptions, got %d", len(got))
	}
	if got[0] != (Description{Name: "api", Type: "http-client", Details: "https://api.example.com"}) {
		t.Errorf("unexpected description %+v", got[0])
	}
	if got[1] != (Description{Name: "plain"}) {
		t.Errorf("unexpected description %+v", got[1])
	}
}

func TestHealthStatusConstants(t *testing.T) {
	if StatusHealthy != "healthy" || StatusUnhealthy != "unhealthy" || StatusDegraded != "degraded" {
		t.Error("unexpected health status values")
	}
}
