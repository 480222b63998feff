package slice

import (
	"errors"
	"fmt"
	"reflect"
)

// ---------------------------------------------------------------------------
// Container methods
// ---------------------------------------------------------------------------

// Resolve only takes the read lock to observe the built flag. Once built the
// provider maps and singleton caches are never written again, so the
// resolution itself runs lock-free and constructors may re-enter the
// container through a ModelProvider.
func (c *container) Resolve(scope Scope, key Key) (reflect.Value, error) {
	c.mu.RLock()
	built := c.built
	c.mu.RUnlock()

	if !built {
		return reflect.Value{}, ErrNotBuilt
	}
	if key.Type == nil {
		return reflect.Value{}, errors.New("key has no type")
	}

	return c.resolve(scope, key)
}

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

// Resolve is a generic helper that resolves a typed provider from the
// container:
//
//	db, err := slice.Resolve[*Database](c, nil)
func Resolve[T any](c Container, scope Scope) (T, error) {
	var zero T
	key := KeyOf[T]()

	val, err := c.Resolve(scope, key)
	if err != nil {
		return zero, err
	}

	out, ok := valueAs[T](val)
	if !ok {
		return zero, fmt.Errorf("cannot convert %s to %s", val.Type(), key.Type)
	}

	return out, nil
}

// ResolveNamed is a generic helper that resolves a named provider from the
// container:
//
//	db, err := slice.ResolveNamed[*Database](c, nil, "primary")
func ResolveNamed[T any](c Container, scope Scope, name string) (T, error) {
	var zero T
	key := NamedKey[T](name)

	val, err := c.Resolve(scope, key)
	if err != nil {
		return zero, err
	}

	out, ok := valueAs[T](val)
	if !ok {
		return zero, fmt.Errorf("named %q: cannot convert %s to %s", name, val.Type(), key.Type)
	}

	return out, nil
}

// valueAs converts val to T. A nil interface value converts to the zero T.
func valueAs[T any](val reflect.Value) (T, bool) {
	var zero T
	if !val.IsValid() {
		return zero, false
	}
	if val.Kind() == reflect.Interface && val.IsNil() {
		return zero, true
	}
	out, ok := val.Interface().(T)
	return out, ok
}

// ---------------------------------------------------------------------------
// Internal
// ---------------------------------------------------------------------------

func (c *container) resolve(scope Scope, key Key) (reflect.Value, error) {
	if key.Name != "" {
		return c.resolveNamed(scope, key)
	}

	if inst, ok := c.singletons[key.Type]; ok {
		return inst, nil
	}

	if c.bound[key.Type] {
		return c.lookup(scope, key.Type)
	}

	p, ok := c.providers[key.Type]
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrProviderNotFound, key.Type)
	}

	return c.instance(scope, p)
}

func (c *container) resolveNamed(scope Scope, key Key) (reflect.Value, error) {
	p, ok := c.named[key.Name]
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: named %q", ErrProviderNotFound, key.Name)
	}

	if !p.outType.AssignableTo(key.Type) {
		return reflect.Value{}, fmt.Errorf("named provider %q returns %s, not assignable to %s", key.Name, p.outType, key.Type)
	}

	if inst, ok := c.namedSingletons[key.Name]; ok {
		return inst, nil
	}

	return c.instance(scope, p)
}

// instance applies the provider's lifetime. Singletons never reach this point
// after Build; they are served from the caches.
func (c *container) instance(scope Scope, p provider) (reflect.Value, error) {
	if p.lifetime != ContextScoped {
		return c.construct(scope, p)
	}

	var ctx Context
	if scope != nil {
		ctx = scope.Context()
	}
	if ctx == nil {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrNoContext, p.key())
	}

	key := p.key()
	if inst, ok := ctx.Get(key); ok {
		return inst, nil
	}

	inst, err := c.construct(scope, p)
	if err != nil {
		return reflect.Value{}, err
	}
	ctx.Put(key, inst)
	return inst, nil
}

func (c *container) lookup(scope Scope, t reflect.Type) (reflect.Value, error) {
	if scope == nil {
		return reflect.Value{}, fmt.Errorf("%w: %s is bound to the resolution scope and none was given", ErrProviderNotFound, t)
	}

	val, err := scope.Lookup(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if !val.IsValid() {
		return reflect.Zero(t), nil
	}
	return val, nil
}

// construct creates a new instance by resolving all dependencies. Singleton
// deps come from the cache, bound deps from the scope; everything else is
// resolved recursively with the provider's lifetime applied.
func (c *container) construct(scope Scope, p provider) (reflect.Value, error) {
	fnType := p.constructor.Type()
	args := make([]reflect.Value, fnType.NumIn())

	for i := 0; i < fnType.NumIn(); i++ {
		depType := fnType.In(i)

		inst, err := c.resolve(scope, Key{Type: depType})
		if err != nil {
			return reflect.Value{}, fmt.Errorf("resolving %s: %w", depType, err)
		}
		args[i] = inst
	}

	results := p.constructor.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return reflect.Value{}, results[1].Interface().(error)
	}

	return results[0], nil
}
