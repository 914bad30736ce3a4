package session

import (
	"context"
	"sync"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying the manager
func NewContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the manager carried by ctx, or ErrNotProvisioned
func FromContext(ctx context.Context) (*Manager, error) {
	m, ok := ctx.Value(contextKey{}).(*Manager)
	if !ok || m == nil {
		return nil, ErrNotProvisioned
	}
	return m, nil
}

// MustFromContext is FromContext for callers that cannot run without a session.
// It panics with ErrNotProvisioned.
func MustFromContext(ctx context.Context) *Manager {
	m, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return m
}

// Provider builds the process's Manager once, on first use
type Provider struct {
	build func() (*Manager, error)

	once    sync.Once
	manager *Manager
	err     error
}

// NewProvider creates a Provider around build
func NewProvider(build func() (*Manager, error)) *Provider {
	return &Provider{build: build}
}

// Get returns the Manager, building it on the first call. Every caller sees
// the same Manager or the same build error.
func (p *Provider) Get() (*Manager, error) {
	if p == nil || p.build == nil {
		return nil, ErrNotProvisioned
	}
	p.once.Do(func() {
		p.manager, p.err = p.build()
	})
	return p.manager, p.err
}
