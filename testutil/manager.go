package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// Manager starts, resets and stops a group of test components together.
// Components stop in reverse start order.
type Manager struct {
	ctx        context.Context
	mu         sync.RWMutex
	components []TestComponent
	started    int
}

// NewManager returns an empty manager bound to ctx.
func NewManager(ctx context.Context) *Manager {
	return &Manager{ctx: ctx}
}

// Add registers components. They start on the next StartAll.
func (m *Manager) Add(components ...TestComponent) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, components...)
	return m
}

// Get returns the component named name, or nil.
func (m *Manager) Get(name string) TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// StartAll starts components not yet started. On failure the components
// started by this call are stopped again.
func (m *Manager) StartAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	first := m.started
	for _, c := range m.components[first:] {
		if err := c.Start(m.ctx); err != nil {
			startErr := fmt.Errorf("start %s: %w", c.Name(), err)
			return errors.Join(startErr, m.stopFrom(first))
		}
		m.started++
	}
	return nil
}

// StopAll stops every started component, newest first, and joins the errors.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopFrom(0)
}

func (m *Manager) stopFrom(first int) error {
	var errs []error
	for i := m.started - 1; i >= first; i-- {
		c := m.components[i]
		if err := c.Stop(context.WithoutCancel(m.ctx)); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
		}
	}
	m.started = first
	return errors.Join(errs...)
}

// ResetAll resets every component and stops at the first failure.
func (m *Manager) ResetAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components[:m.started] {
		if err := c.Reset(m.ctx); err != nil {
			return fmt.Errorf("reset %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Setup starts the manager's components and stops them when t ends.
func (m *Manager) Setup(t testing.TB) {
	t.Helper()
	if err := m.StartAll(); err != nil {
		t.Fatalf("start components: %v", err)
	}
	t.Cleanup(func() {
		if err := m.StopAll(); err != nil {
			t.Errorf("stop components: %v", err)
		}
	})
}
