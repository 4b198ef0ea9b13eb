package testutil

import (
	"context"

	"github.com/kbukum/reqflow/component"
)

// TestComponent is a component.Component whose state tests can rewind.
type TestComponent interface {
	component.Component

	// Reset drops all state accumulated since Start.
	Reset(ctx context.Context) error
	// Snapshot returns an opaque copy of the current state for Restore.
	Snapshot(ctx context.Context) (any, error)
	Restore(ctx context.Context, snapshot any) error
}
