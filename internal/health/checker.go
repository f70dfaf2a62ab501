// Package health reports the readiness of the service's backing stores.
package health

import (
	"context"
)

// Checker verifies that one dependency is reachable
type Checker interface {
	// Name identifies the dependency in readiness reports
	Name() string

	// Check returns nil when the dependency is usable
	Check(ctx context.Context) error
}

// PingFunc adapts a ping function into a Checker
type PingFunc struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingFunc creates a Checker named name that calls ping
func NewPingFunc(name string, ping func(ctx context.Context) error) *PingFunc {
	return &PingFunc{name: name, ping: ping}
}

// Name returns the checker name
func (p *PingFunc) Name() string {
	return p.name
}

// Check calls the wrapped ping
func (p *PingFunc) Check(ctx context.Context) error {
	return p.ping(ctx)
}
