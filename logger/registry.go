package logger

import (
	"slices"
	"sync"
)

// registry holds named loggers. Entries seeded by RegisterDefaults derive
// from the global logger and are rebuilt whenever Init replaces it.
var registry = &loggerRegistry{
	loggers:  make(map[string]*Logger),
	defaults: make(map[string]struct{}),
}

type loggerRegistry struct {
	mu       sync.RWMutex
	loggers  map[string]*Logger
	defaults map[string]struct{}
}

// Register stores l under name. It is kept as is across Init calls.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
	delete(registry.defaults, name)
}

// Get returns the logger registered under name, or the global logger tagged
// with name as its component.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults registers a component logger for each name, derived from
// the current global logger.
func RegisterDefaults(names ...string) {
	global := GetGlobalLogger()
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, name := range names {
		registry.loggers[name] = global.WithComponent(name)
		registry.defaults[name] = struct{}{}
	}
}

// Registered returns the registered names in sorted order.
func Registered() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.loggers))
	for name := range registry.loggers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// refreshDefaults rebuilds the RegisterDefaults entries from global.
func refreshDefaults(global *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for name := range registry.defaults {
		registry.loggers[name] = global.WithComponent(name)
	}
}
