// Package component defines lifecycle-managed infrastructure.
//
// A Component can be started, stopped and asked for its health. Registry
// starts components in registration order, stops them in reverse, and
// rolls back already-started components when one fails to start.
package component
