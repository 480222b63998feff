package slice

// Lifetime controls how often the container runs a provider's constructor.
type Lifetime int

const (
	// Singleton is the default. The constructor runs once, during
	// [Container.Build], and every resolution shares the result. A singleton
	// cannot depend on anything a request supplies.
	Singleton Lifetime = iota

	// Transient runs the constructor on every resolution. Content models are
	// usually transient.
	Transient

	// ContextScoped caches one instance per [Context]. Everything a single
	// ModelProvider builds sees the same instance.
	ContextScoped
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case ContextScoped:
		return "context"
	default:
		return "unknown"
	}
}
