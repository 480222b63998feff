// Package slice builds typed models from a content tree using a
// reflection-based dependency injection container.
//
// Models are plain Go types with constructor functions. A constructor asks
// for what it needs as parameters: the current [resource.Resource], the
// current [ExecutionContext], the [ModelProvider] to build nested models,
// or any other registered collaborator. Register the constructors, call
// [Container.Build] to validate the graph, then create one [ModelProvider]
// per request and ask it for models by path.
//
// # Quick Start
//
//	c := slice.New()
//	c.Register(NewTeaser, slice.WithLifetime(slice.Transient))
//	c.Register(NewPage, slice.WithLifetime(slice.Transient))
//	c.Build()
//
//	stack := slice.NewExecutionContextStack()
//	scope := slice.NewContextScope(slice.NewContextProvider())
//	provider := slice.NewModelProvider(c, scope, slice.MapperFor(c), stack,
//		slice.WithResolver(tree))
//
//	page, err := slice.Get[*Page](provider, "/content/home")
//
// # Execution contexts
//
// Every Get pushes a frame onto the request's [ExecutionContextStack] for
// the duration of the container call and pops it afterwards, also when the
// constructor fails. A nested Get with a relative path resolves against the
// innermost frame, so a page constructor can build its teasers with
//
//	teasers, err := slice.GetChildModels[*Teaser](provider, "teasers")
//
// # Lifetimes
//
// [Singleton] (default): one shared instance for the lifetime of the
// container. Singletons cannot depend on request values.
//
// [Transient]: a fresh instance on every resolution. Models are usually
// transient.
//
// [ContextScoped]: one instance per [Context]. The model provider installs
// its own [ContextProvider] in the request's [ContextScope] around every
// container call, so everything built through one provider shares these.
//
// # Named Providers
//
// When you need several implementations of the same return type, use named
// registration and resolve with [NamedKey]:
//
//	c.RegisterNamed("hero", NewHeroTeaser)
//	v, err := provider.Get(slice.NamedKey[*Teaser]("hero"), "/content/home/hero")
package slice
