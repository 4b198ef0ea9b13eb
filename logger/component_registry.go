package logger

import (
	"sync"
	"time"
)

// ComponentRegistry records what a process brought up during startup so it
// can be summarized once startup is done.
type ComponentRegistry struct {
	mu             sync.Mutex
	startTime      time.Time
	infrastructure []InfraComponent
	clients        []ClientComponent
}

// InfraComponent is a supporting dependency such as a telemetry exporter.
type InfraComponent struct {
	Name    string
	Type    string // "otlp"
	Status  string // "active", "inactive", "error"
	Details string
}

// ClientComponent is an outbound client.
type ClientComponent struct {
	Name   string
	Type   string // "http-client"
	Target string // base URL
	Status string
}

// NewComponentRegistry starts an empty registry; its clock starts now.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{startTime: time.Now()}
}

// StartTime returns when the registry was created.
func (r *ComponentRegistry) StartTime() time.Time {
	return r.startTime
}

// RegisterInfrastructure records a supporting dependency.
func (r *ComponentRegistry) RegisterInfrastructure(name, componentType, status, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infrastructure = append(r.infrastructure, InfraComponent{
		Name:    name,
		Type:    componentType,
		Status:  status,
		Details: details,
	})
}

// RegisterClient records an outbound client.
func (r *ComponentRegistry) RegisterClient(name, clientType, target, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, ClientComponent{
		Name:   name,
		Type:   clientType,
		Target: target,
		Status: status,
	})
}

// Infrastructure returns a copy of the recorded dependencies.
func (r *ComponentRegistry) Infrastructure() []InfraComponent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]InfraComponent(nil), r.infrastructure...)
}

// Clients returns a copy of the recorded clients.
func (r *ComponentRegistry) Clients() []ClientComponent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ClientComponent(nil), r.clients...)
}

// LogSummary writes one debug line per component and an info line with the
// totals and the time since the registry was created.
func (r *ComponentRegistry) LogSummary(l *Logger) {
	infra, clients := r.Infrastructure(), r.Clients()
	for _, c := range infra {
		l.Debug("infrastructure ready", Fields(
			"name", c.Name, "type", c.Type, "status", c.Status, "details", c.Details,
		))
	}
	for _, c := range clients {
		l.Debug("client ready", Fields(
			"name", c.Name, "type", c.Type, "target", c.Target, "status", c.Status,
		))
	}
	l.Info("startup complete", Fields(
		"infrastructure", len(infra),
		"clients", len(clients),
		FieldDuration, time.Since(r.startTime).Milliseconds(),
	))
}
