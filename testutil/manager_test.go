package testutil

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/reqflow/component"
)

// stubComponent records lifecycle calls into a shared log.
type stubComponent struct {
	name     string
	log      *[]string
	startErr error
	stopErr  error
}

func (s *stubComponent) Name() string { return s.name }

func (s *stubComponent) Start(context.Context) error {
	*s.log = append(*s.log, "start "+s.name)
	return s.startErr
}

func (s *stubComponent) Stop(context.Context) error {
	*s.log = append(*s.log, "stop "+s.name)
	return s.stopErr
}

func (s *stubComponent) Health(context.Context) component.Health {
	return component.Health{Name: s.name, Status: component.StatusHealthy}
}

func (s *stubComponent) Reset(context.Context) error {
	*s.log = append(*s.log, "reset "+s.name)
	return nil
}

func (s *stubComponent) Snapshot(context.Context) (any, error) { return nil, nil }

func (s *stubComponent) Restore(context.Context, any) error { return nil }

func TestManager_StartsInOrderStopsInReverse(t *testing.T) {
	var log []string
	m := NewManager(context.Background()).Add(
		&stubComponent{name: "a", log: &log},
		&stubComponent{name: "b", log: &log},
	)

	require.NoError(t, m.StartAll())
	require.NoError(t, m.ResetAll())
	require.NoError(t, m.StopAll())
	assert.Equal(t, []string{"start a", "start b", "reset a", "reset b", "stop b", "stop a"}, log)

	log = nil
	require.NoError(t, m.StopAll())
	assert.Empty(t, log, "stopped components must not stop twice")
}

func TestManager_StartFailureUnwindsStarted(t *testing.T) {
	var log []string
	boom := errors.New("port in use")
	m := NewManager(context.Background()).Add(
		&stubComponent{name: "a", log: &log},
		&stubComponent{name: "b", log: &log, startErr: boom},
	)

	err := m.StartAll()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "start b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, log)
}

func TestManager_StopJoinsErrors(t *testing.T) {
	var log []string
	errA, errB := errors.New("a stuck"), errors.New("b stuck")
	m := NewManager(context.Background()).Add(
		&stubComponent{name: "a", log: &log, stopErr: errA},
		&stubComponent{name: "b", log: &log, stopErr: errB},
	)
	require.NoError(t, m.StartAll())

	err := m.StopAll()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestManager_SetupServesMockServers(t *testing.T) {
	users, orders := NewMockServer("users"), NewMockServer("orders")
	users.On(http.MethodGet, "/ping", Reply{Status: 200, Body: "users"})
	orders.On(http.MethodGet, "/ping", Reply{Status: 200, Body: "orders"})

	m := NewManager(context.Background()).Add(users, orders)
	m.Setup(t)

	_, body := get(t, m.Get("orders").(*MockServer).URL()+"/ping")
	assert.Equal(t, "orders", body)
	assert.Nil(t, m.Get("billing"))
}
