package slice

import (
	"reflect"
	"sync"
)

// Context caches the [ContextScoped] instances built while it is active.
type Context interface {
	Get(key Key) (reflect.Value, bool)
	Put(key Key, val reflect.Value)
}

type mapContext struct {
	mu     sync.Mutex
	values map[Key]reflect.Value
}

// NewContext returns an empty map-backed Context.
func NewContext() Context {
	return &mapContext{values: make(map[Key]reflect.Value)}
}

func (c *mapContext) Get(key Key) (reflect.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *mapContext) Put(key Key, val reflect.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = val
}

// ContextProvider hands out the Context that is current for whoever holds
// it. The core never looks inside; it only installs and restores providers.
type ContextProvider interface {
	Context() Context
}

type contextProvider struct {
	ctx Context
}

// NewContextProvider returns a provider with a fresh Context of its own.
func NewContextProvider() ContextProvider {
	return &contextProvider{ctx: NewContext()}
}

func (p *contextProvider) Context() Context {
	return p.ctx
}

// ContextScope is the slot holding the active ContextProvider of one
// request. Like the [ExecutionContextStack] it is confined to that request.
type ContextScope struct {
	provider ContextProvider
}

// NewContextScope returns a scope with p active. p may be nil.
func NewContextScope(p ContextProvider) *ContextScope {
	return &ContextScope{provider: p}
}

// ContextProvider returns the active provider.
func (s *ContextScope) ContextProvider() ContextProvider {
	return s.provider
}

// SetContextProvider makes p the active provider.
func (s *ContextScope) SetContextProvider(p ContextProvider) {
	s.provider = p
}

// Swap activates p and returns a func that reinstates the provider that was
// active before. Swaps must be released in reverse order.
func (s *ContextScope) Swap(p ContextProvider) (restore func()) {
	previous := s.provider
	s.provider = p
	return func() {
		s.provider = previous
	}
}

// Context returns the active provider's context, nil when no provider is
// active.
func (s *ContextScope) Context() Context {
	if s.provider == nil {
		return nil
	}
	return s.provider.Context()
}
