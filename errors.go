package slice

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBuilt is returned when Resolve is called before Build.
	ErrNotBuilt = errors.New("container not built")

	// ErrAlreadyBuilt is returned when Register, Bind or Build is called after
	// the container has already been built.
	ErrAlreadyBuilt = errors.New("container already built")

	// ErrAlreadyShutdown is returned by Shutdown on every call after the first.
	ErrAlreadyShutdown = errors.New("container already shut down")

	// ErrProviderNotFound is returned when no provider is registered for the
	// requested key and the resolution scope does not bind its type.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrCircularDependency is returned when the dependency graph contains a
	// cycle. The error message includes the full chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrDuplicateProvider is returned when a provider for the same type or
	// name is registered more than once.
	ErrDuplicateProvider = errors.New("duplicate provider")

	// ErrScopeMismatch is returned by Build when a Singleton depends, directly
	// or through transients, on a bound or context-scoped type.
	ErrScopeMismatch = errors.New("singleton depends on request-scoped type")

	// ErrNoContext is returned when a ContextScoped provider is resolved
	// without an active context.
	ErrNoContext = errors.New("no active context")

	// ErrUnknownType is returned by ModelProvider.GetByName when the class
	// name does not map to a registered key. No frame is pushed.
	ErrUnknownType = errors.New("unknown model type")

	// ErrEmptyStack is returned when Pop is called on an empty
	// ExecutionContextStack. It always means a push/pop pairing bug.
	ErrEmptyStack = errors.New("execution context stack is empty")

	// ErrConstructorPanicked is what observers see as the error of a build
	// whose constructor panicked. The panic itself propagates to the caller.
	ErrConstructorPanicked = errors.New("constructor panicked")

	// ErrNoResolver is returned when an operation needs resource access and
	// the model provider was created without a resource.Resolver.
	ErrNoResolver = errors.New("no resource resolver configured")
)

// InstantiationError reports that the container could not produce a model.
// Cleanup of the execution context stack and the context scope has already
// happened by the time the caller sees it.
type InstantiationError struct {
	Key  Key
	Path string
	Err  error
}

func (e *InstantiationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("instantiating %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("instantiating %s from %s: %v", e.Key, e.Path, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}
