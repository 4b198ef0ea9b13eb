package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrBulkheadFull is returned when no slot is free and MaxWait is zero.
	ErrBulkheadFull = errors.New("resilience: bulkhead full")
	// ErrBulkheadTimeout is returned when MaxWait elapses before a slot frees up.
	ErrBulkheadTimeout = errors.New("resilience: bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// MaxConcurrent is the number of slots. Defaults to 10.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait is how long Acquire queues for a slot. Zero rejects immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`
	// OnReject is called with the bulkhead name on every rejection.
	OnReject func(name string) `yaml:"-" mapstructure:"-"`
}

// BulkheadStats is a point-in-time view of a bulkhead.
type BulkheadStats struct {
	Capacity int
	InUse    int
	Waiting  int
	Rejected int64
}

// Bulkhead caps the number of operations in flight.
type Bulkhead struct {
	config   BulkheadConfig
	slots    chan struct{}
	waiting  atomic.Int64
	rejected atomic.Int64
}

// NewBulkhead creates a bulkhead with cfg.MaxConcurrent free slots.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{config: cfg, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

// Acquire takes a slot and returns the function that gives it back. The
// release function is safe to call more than once.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := b.wait(ctx); err != nil {
		if errors.Is(err, ErrBulkheadFull) || errors.Is(err, ErrBulkheadTimeout) {
			b.rejected.Add(1)
			if b.config.OnReject != nil {
				b.config.OnReject(b.config.Name)
			}
		}
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { <-b.slots }) }, nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.config.MaxWait <= 0 {
		return b.reject(ErrBulkheadFull)
	}

	b.waiting.Add(1)
	defer b.waiting.Add(-1)

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return b.reject(ErrBulkheadTimeout)
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (b *Bulkhead) reject(err error) error {
	if b.config.Name == "" {
		return err
	}
	return fmt.Errorf("%w (%s)", err, b.config.Name)
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Stats reports current usage.
func (b *Bulkhead) Stats() BulkheadStats {
	return BulkheadStats{
		Capacity: cap(b.slots),
		InUse:    len(b.slots),
		Waiting:  int(b.waiting.Load()),
		Rejected: b.rejected.Load(),
	}
}

// Saturated reports whether every slot is taken.
func (b *Bulkhead) Saturated() bool {
	return len(b.slots) == cap(b.slots)
}
