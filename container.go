package slice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Container defines the interface for the injection container the model
// provider delegates to. Use [New] to create an instance.
type Container interface {
	// Register adds a constructor to the container. The constructor must be a
	// function with the signature func(deps...) T or func(deps...) (T, error).
	// Dependencies are expressed as function parameters and resolved by type.
	Register(constructor interface{}, opts ...Option) error

	// RegisterNamed adds a named constructor. Named providers live in a
	// separate namespace and are resolved with a [Key] carrying the name,
	// see [NamedKey].
	RegisterNamed(name string, constructor interface{}, opts ...Option) error

	// Bind declares that values of type t are not constructed by the
	// container but supplied by the [Scope] passed to Resolve. [New] binds
	// the model provider's request types already.
	Bind(t reflect.Type) error

	// Build validates the full dependency graph (missing providers, circular
	// dependencies, singletons that depend on request-scoped values) and
	// eagerly instantiates all [Singleton] providers. After Build
	// succeeds the container is immutable; no further registrations are
	// accepted.
	Build() error

	// Resolve returns the value for the given key. Bound types and
	// [ContextScoped] providers are served from scope, which may be nil when
	// neither is involved. Prefer the generic [Resolve] helper or a
	// [ModelProvider] over calling this method directly.
	Resolve(scope Scope, key Key) (reflect.Value, error)

	// Keys lists every registered provider key, sorted by name.
	Keys() []Key

	// Shutdown gracefully closes all singleton providers that implement
	// [io.Closer], in reverse dependency order (dependents are closed before
	// their dependencies). The context controls the overall deadline; if it
	// expires, remaining closers are skipped and the context error is
	// included in the result.
	//
	// Shutdown is safe to call multiple times; subsequent calls return
	// [ErrAlreadyShutdown]. It is the caller's responsibility to stop
	// calling [Container.Resolve] before or during shutdown.
	Shutdown(ctx context.Context) error
}

// Scope supplies the values of a single resolution chain. A [ModelProvider]
// is the scope of every model it builds.
type Scope interface {
	// Lookup returns the value bound to t. Returning an invalid
	// reflect.Value with a nil error yields the zero value of t.
	Lookup(t reflect.Type) (reflect.Value, error)

	// Context returns the context that caches [ContextScoped] instances, or
	// nil when no context is active.
	Context() Context
}

type container struct {
	mu sync.RWMutex

	providers       map[reflect.Type]provider
	named           map[string]provider
	bound           map[reflect.Type]bool
	singletons      map[reflect.Type]reflect.Value
	namedSingletons map[string]reflect.Value

	// closers holds singletons that implement io.Closer, recorded in
	// dependency order during Build. Shutdown iterates them in reverse.
	closers []io.Closer

	built    bool
	shutdown bool
}

// New creates an empty [Container] ready for registration. The types a
// [ModelProvider] hands to constructors (the provider itself, the current
// [ExecutionContext], the current resource and its resolver, the
// [ContextScope] and the [ExecutionContextStack]) are bound already.
func New() Container {
	c := &container{
		providers:       make(map[reflect.Type]provider),
		named:           make(map[string]provider),
		bound:           make(map[reflect.Type]bool),
		singletons:      make(map[reflect.Type]reflect.Value),
		namedSingletons: make(map[string]reflect.Value),
	}
	for _, t := range requestTypes {
		c.bound[t] = true
	}
	return c
}

// BindType is the generic form of [Container.Bind].
func BindType[T any](c Container) error {
	return c.Bind(typeOf[T]())
}

func (c *container) Register(constructor interface{}, opts ...Option) error {
	return c.register("", constructor, opts...)
}

func (c *container) RegisterNamed(name string, constructor interface{}, opts ...Option) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	return c.register(name, constructor, opts...)
}

func (c *container) register(name string, constructor interface{}, opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrAlreadyBuilt
	}

	val := reflect.ValueOf(constructor)
	if !val.IsValid() {
		return errors.New("constructor must be a function")
	}
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return errors.New("constructor must be a function")
	}

	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return errors.New("constructor must return (T) or (T, error)")
	}

	if typ.NumOut() == 2 {
		errType := reflect.TypeOf((*error)(nil)).Elem()
		if !typ.Out(1).Implements(errType) {
			return errors.New("second return value must implement error")
		}
	}

	p := provider{
		constructor: val,
		lifetime:    Singleton,
		name:        name,
		outType:     typ.Out(0),
	}

	for _, opt := range opts {
		opt(&p)
	}

	if name != "" {
		if _, exists := c.named[name]; exists {
			return fmt.Errorf("%w: named %q", ErrDuplicateProvider, name)
		}
		c.named[name] = p
		return nil
	}

	outType := typ.Out(0)
	if _, exists := c.providers[outType]; exists || c.bound[outType] {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, outType)
	}
	c.providers[outType] = p
	return nil
}

func (c *container) Bind(t reflect.Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrAlreadyBuilt
	}
	if t == nil {
		return errors.New("cannot bind a nil type")
	}
	if _, exists := c.providers[t]; exists {
		return fmt.Errorf("%w: %s is registered and cannot be bound", ErrDuplicateProvider, t)
	}
	c.bound[t] = true
	return nil
}

func (c *container) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]Key, 0, len(c.providers)+len(c.named))
	for _, p := range c.providers {
		keys = append(keys, p.key())
	}
	for _, p := range c.named {
		keys = append(keys, p.key())
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

type buildState int

const (
	unvisited buildState = iota
	visiting
	visited
)

func (c *container) Build() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrAlreadyBuilt
	}

	states := make(map[reflect.Type]buildState)
	static := make(map[reflect.Type]bool)

	for t := range c.providers {
		if _, err := c.buildResolve(t, states, static, nil); err != nil {
			return err
		}
	}

	for name, p := range c.named {
		if err := c.buildNamed(name, p, states, static); err != nil {
			return err
		}
	}

	c.built = true
	return nil
}

// buildResolve walks the dependency graph depth-first using a local state map
// and stack. Singletons are instantiated and cached; transients and
// context-scoped providers are only validated. The returned flag reports
// whether t can be produced without a resolution scope.
func (c *container) buildResolve(t reflect.Type, states map[reflect.Type]buildState, static map[reflect.Type]bool, stack []reflect.Type) (bool, error) {
	if c.bound[t] {
		return false, nil
	}

	switch states[t] {
	case visiting:
		return false, c.circularError(t, stack)
	case visited:
		return static[t], nil
	}

	p, ok := c.providers[t]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrProviderNotFound, t)
	}

	states[t] = visiting
	stack = append(stack, t)

	depsStatic, err := c.buildDeps(p, states, static, stack)
	if err != nil {
		return false, err
	}

	isStatic := false
	switch p.lifetime {
	case Singleton:
		if !depsStatic {
			return false, fmt.Errorf("%w: %s", ErrScopeMismatch, t)
		}
		instance, err := c.construct(nil, p)
		if err != nil {
			return false, fmt.Errorf("constructing %s: %w", t, err)
		}
		c.singletons[t] = instance
		c.recordCloser(instance)
		isStatic = true
	case Transient:
		isStatic = depsStatic
	}

	states[t] = visited
	static[t] = isStatic
	return isStatic, nil
}

func (c *container) buildDeps(p provider, states map[reflect.Type]buildState, static map[reflect.Type]bool, stack []reflect.Type) (bool, error) {
	all := true
	fnType := p.constructor.Type()
	for i := 0; i < fnType.NumIn(); i++ {
		ok, err := c.buildResolve(fnType.In(i), states, static, stack)
		if err != nil {
			return false, err
		}
		all = all && ok
	}
	return all, nil
}

func (c *container) buildNamed(name string, p provider, states map[reflect.Type]buildState, static map[reflect.Type]bool) error {
	depsStatic, err := c.buildDeps(p, states, static, nil)
	if err != nil {
		return fmt.Errorf("named provider %q: %w", name, err)
	}
	if p.lifetime != Singleton {
		return nil
	}
	if !depsStatic {
		return fmt.Errorf("named provider %q: %w", name, ErrScopeMismatch)
	}
	instance, err := c.construct(nil, p)
	if err != nil {
		return fmt.Errorf("constructing named %q: %w", name, err)
	}
	c.namedSingletons[name] = instance
	c.recordCloser(instance)
	return nil
}

func (c *container) recordCloser(instance reflect.Value) {
	if !instance.IsValid() || !instance.CanInterface() {
		return
	}
	if closer, ok := instance.Interface().(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
}

func (c *container) circularError(t reflect.Type, stack []reflect.Type) error {
	chain := make([]string, len(stack)+1)
	for i, s := range stack {
		chain[i] = s.String()
	}
	chain[len(stack)] = t.String()

	return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(chain, " -> "))
}

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

func (c *container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.built {
		return ErrNotBuilt
	}

	if c.shutdown {
		return ErrAlreadyShutdown
	}

	c.shutdown = true

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
