package slice

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"slices"
	"time"

	"github.com/royteeuwen/slice/internal/logging"
	"github.com/royteeuwen/slice/resource"
)

var (
	modelProviderType    = reflect.TypeOf((*ModelProvider)(nil))
	executionContextType = reflect.TypeOf(ExecutionContext{})
	resourceType         = reflect.TypeOf((*resource.Resource)(nil)).Elem()
	resolverType         = reflect.TypeOf((*resource.Resolver)(nil)).Elem()
	contextType          = reflect.TypeOf((*context.Context)(nil)).Elem()
	contextScopeType     = reflect.TypeOf((*ContextScope)(nil))
	stackType            = reflect.TypeOf((*ExecutionContextStack)(nil))
)

// requestTypes are bound in every container created by New; a ModelProvider
// supplies them to the constructors it runs.
var requestTypes = []reflect.Type{
	modelProviderType,
	executionContextType,
	resourceType,
	resolverType,
	contextType,
	contextScopeType,
	stackType,
}

var _ Scope = (*ModelProvider)(nil)

// Observer is notified around every container call a ModelProvider makes.
// Calls nest exactly like the models do.
type Observer interface {
	ModelStarted(key Key)
	ModelFinished(key Key, elapsed time.Duration, err error)
}

// ModelProvider builds models for one request. Every Get pushes a frame on
// the request's ExecutionContextStack and installs the provider's own
// ContextProvider for the duration of the container call, so constructors
// that ask for a nested model resolve relative paths against their own
// resource. Both are undone before Get returns, whatever the outcome.
//
// A ModelProvider is not safe for concurrent use. Create one per request.
type ModelProvider struct {
	container       Container
	scope           *ContextScope
	contextProvider ContextProvider
	mapper          ClassToKeyMapper
	stack           *ExecutionContextStack

	ctx      context.Context
	resolver resource.Resolver
	logger   *slog.Logger
	observer Observer
	values   map[reflect.Type]reflect.Value
}

// ProviderOption configures a ModelProvider.
type ProviderOption func(*ModelProvider)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *ModelProvider) {
		p.logger = l
	}
}

// WithObserver registers o to be told about every model built.
func WithObserver(o Observer) ProviderOption {
	return func(p *ModelProvider) {
		p.observer = o
	}
}

// WithResolver sets the content tree that current resources and child
// models are read from.
func WithResolver(r resource.Resolver) ProviderOption {
	return func(p *ModelProvider) {
		p.resolver = r
	}
}

// WithContext sets the context used for resolver calls and handed to
// constructors that take a context.Context.
func WithContext(ctx context.Context) ProviderOption {
	return func(p *ModelProvider) {
		p.ctx = ctx
	}
}

// WithValue supplies v to constructors that take its dynamic type. The type
// has to be bound in the container, see [Container.Bind].
func WithValue(v any) ProviderOption {
	return func(p *ModelProvider) {
		if v != nil {
			p.values[reflect.TypeOf(v)] = reflect.ValueOf(v)
		}
	}
}

// NewModelProvider returns a provider resolving models from c. The context
// provider active in scope at this point becomes the provider's own.
func NewModelProvider(c Container, scope *ContextScope, mapper ClassToKeyMapper, stack *ExecutionContextStack, opts ...ProviderOption) *ModelProvider {
	p := &ModelProvider{
		container:       c,
		scope:           scope,
		contextProvider: scope.ContextProvider(),
		mapper:          mapper,
		stack:           stack,
		ctx:             context.Background(),
		logger:          logging.NewNop(),
		values:          make(map[reflect.Type]reflect.Value),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get builds the model for key anchored at path. A relative path is resolved
// against the model currently being built, if any.
func (p *ModelProvider) Get(key Key, path string) (reflect.Value, error) {
	frame := NewPathContext(p.stack.AbsolutePath(path))
	p.logger.Debug("creating new instance", "key", key, "path", frame.Path())
	return p.get(key, frame)
}

// GetFromResource builds the model for key anchored at res.
func (p *ModelProvider) GetFromResource(key Key, res resource.Resource) (reflect.Value, error) {
	if res == nil {
		return reflect.Value{}, fmt.Errorf("creating %s: resource is nil", key)
	}
	p.logger.Debug("creating new instance from resource", "key", key, "resource", res.Path())
	return p.get(key, NewResourceContext(res))
}

// GetByName builds the model registered for className anchored at path. It
// fails with ErrUnknownType, before touching the stack, when the mapper does
// not know the name.
func (p *ModelProvider) GetByName(className, path string) (any, error) {
	var (
		key Key
		ok  bool
	)
	if p.mapper != nil {
		key, ok = p.mapper.Key(className)
	}
	if !ok {
		return nil, fmt.Errorf("%w: key for class %s not found", ErrUnknownType, className)
	}

	val, err := p.Get(key, path)
	if err != nil {
		return nil, err
	}
	return val.Interface(), nil
}

// GetList builds one model per path, in order. Nil or empty input yields an
// empty result. The first failure is returned and the remaining paths are
// not visited.
func (p *ModelProvider) GetList(key Key, paths []string) ([]reflect.Value, error) {
	return p.GetListSeq(key, slices.Values(paths))
}

// GetListSeq is GetList over a sequence of paths.
func (p *ModelProvider) GetListSeq(key Key, paths iter.Seq[string]) ([]reflect.Value, error) {
	result := []reflect.Value{}
	if paths == nil {
		return result, nil
	}
	for path := range paths {
		val, err := p.Get(key, path)
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, nil
}

// GetChildModels builds one model per child of the resource at parentPath.
// A missing parent yields an empty result.
func (p *ModelProvider) GetChildModels(key Key, parentPath string) ([]reflect.Value, error) {
	return p.childModels(key, p.stack.AbsolutePath(parentPath))
}

// GetChildModelsFromResource builds one model per child of res.
func (p *ModelProvider) GetChildModelsFromResource(key Key, res resource.Resource) ([]reflect.Value, error) {
	if res == nil {
		return []reflect.Value{}, nil
	}
	return p.childModels(key, res.Path())
}

func (p *ModelProvider) childModels(key Key, parent string) ([]reflect.Value, error) {
	if p.resolver == nil {
		return nil, ErrNoResolver
	}

	children, err := p.resolver.ListChildren(p.ctx, parent)
	if errors.Is(err, resource.ErrNotFound) {
		return []reflect.Value{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", parent, err)
	}

	result := make([]reflect.Value, 0, len(children))
	for _, child := range children {
		val, err := p.GetFromResource(key, child)
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, nil
}

func (p *ModelProvider) get(key Key, frame ExecutionContext) (val reflect.Value, err error) {
	release := p.enter(key, frame)
	defer func() {
		if r := recover(); r != nil {
			release(fmt.Errorf("%w: %v", ErrConstructorPanicked, r))
			panic(r)
		}
		release(err)
	}()

	val, err = p.container.Resolve(p, key)
	if err != nil {
		return reflect.Value{}, &InstantiationError{Key: key, Path: frame.Path(), Err: err}
	}
	return val, nil
}

// enter installs the provider's context provider and frame, and returns the
// func that removes both again. The returned func must run exactly once.
func (p *ModelProvider) enter(key Key, frame ExecutionContext) func(error) {
	restore := p.scope.Swap(p.contextProvider)
	p.stack.Push(frame)
	depth := p.stack.Len()

	if p.observer != nil {
		p.observer.ModelStarted(key)
	}
	start := time.Now()

	return func(err error) {
		if p.observer != nil {
			p.observer.ModelFinished(key, time.Since(start), err)
		}
		if n := p.stack.Len(); n != depth {
			p.logger.Error("execution context stack out of balance", "key", key, "want", depth, "got", n)
		}
		if _, popErr := p.stack.Pop(); popErr != nil {
			p.logger.Error("releasing execution context", "key", key, "error", popErr)
		}
		restore()
	}
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

// Lookup supplies the request types bound by New and the values given with
// WithValue.
func (p *ModelProvider) Lookup(t reflect.Type) (reflect.Value, error) {
	switch t {
	case modelProviderType:
		return reflect.ValueOf(p), nil
	case executionContextType:
		top, ok := p.stack.Peek()
		if !ok {
			return reflect.Value{}, fmt.Errorf("%s: %w", t, ErrEmptyStack)
		}
		return reflect.ValueOf(top), nil
	case resourceType:
		res, err := p.currentResource()
		if err != nil || res == nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(&res).Elem(), nil
	case resolverType:
		if p.resolver == nil {
			return reflect.Value{}, nil
		}
		return reflect.ValueOf(&p.resolver).Elem(), nil
	case contextType:
		return reflect.ValueOf(&p.ctx).Elem(), nil
	case contextScopeType:
		return reflect.ValueOf(p.scope), nil
	case stackType:
		return reflect.ValueOf(p.stack), nil
	}

	if val, ok := p.values[t]; ok {
		return val, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not supplied by this request", ErrProviderNotFound, t)
}

// Context returns the context of the active context provider.
func (p *ModelProvider) Context() Context {
	return p.scope.Context()
}

// currentResource returns the resource of the top frame, loading it through
// the resolver for path frames. A missing resource is not an error.
func (p *ModelProvider) currentResource() (resource.Resource, error) {
	top, ok := p.stack.Peek()
	if !ok {
		return nil, nil
	}
	if res := top.Resource(); res != nil {
		return res, nil
	}
	if p.resolver == nil || top.Path() == "" {
		return nil, nil
	}

	res, err := p.resolver.GetResource(p.ctx, top.Path())
	if errors.Is(err, resource.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading resource %s: %w", top.Path(), err)
	}
	return res, nil
}
