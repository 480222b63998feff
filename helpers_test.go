package slice

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/royteeuwen/slice/resource"
	"github.com/royteeuwen/slice/resource/memory"
)

// Shared test types and constructors used across test files.

// mustRegister calls t.Fatal if registration fails.
func mustRegister(t testing.TB, c Container, constructor interface{}, opts ...Option) {
	t.Helper()
	if err := c.Register(constructor, opts...); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

// mustRegisterNamed calls t.Fatal if named registration fails.
func mustRegisterNamed(t testing.TB, c Container, name string, constructor interface{}, opts ...Option) {
	t.Helper()
	if err := c.RegisterNamed(name, constructor, opts...); err != nil {
		t.Fatalf("RegisterNamed(%q): %v", name, err)
	}
}

// mustBuild calls t.Fatal if build fails.
func mustBuild(t testing.TB, c Container) {
	t.Helper()
	if err := c.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

type testSiteConfig struct{ Host string }
type testI18n struct{ Lang string }

type testLinkBuilder struct {
	Config *testSiteConfig
	I18n   *testI18n
}

type testSitemap struct {
	Links *testLinkBuilder
	I18n  *testI18n
}

type testNavigation interface {
	Name() string
}

type testMainNav struct {
	Sitemap *testSitemap
	I18n    *testI18n
}

func (n *testMainNav) Name() string { return "main" }

type testFooterNav struct{ I18n *testI18n }

func (n *testFooterNav) Name() string { return "footer" }

type testCircA struct{ B *testCircB }
type testCircB struct{ C *testCircC }
type testCircC struct{ A *testCircA }

func newTestI18n() *testI18n               { return &testI18n{Lang: "en"} }
func newTestSiteConfig() *testSiteConfig   { return &testSiteConfig{Host: "https://example.com"} }
func newTestCircA(b *testCircB) *testCircA { return &testCircA{B: b} }
func newTestCircB(c *testCircC) *testCircB { return &testCircB{C: c} }
func newTestCircC(a *testCircA) *testCircC { return &testCircC{A: a} }

func newTestLinkBuilder(cfg *testSiteConfig, i18n *testI18n) *testLinkBuilder {
	return &testLinkBuilder{Config: cfg, I18n: i18n}
}

func newTestSitemap(links *testLinkBuilder, i18n *testI18n) *testSitemap {
	return &testSitemap{Links: links, I18n: i18n}
}

func newTestMainNav(sitemap *testSitemap, i18n *testI18n) *testMainNav {
	return &testMainNav{Sitemap: sitemap, I18n: i18n}
}

func newTestFooterNav(i18n *testI18n) *testFooterNav {
	return &testFooterNav{I18n: i18n}
}

// testClosable is a singleton that implements io.Closer for shutdown tests.
type testClosable struct {
	Name   string
	Closed bool
	Order  *[]string // shared slice to record close order
}

func (c *testClosable) Close() error {
	c.Closed = true
	if c.Order != nil {
		*c.Order = append(*c.Order, c.Name)
	}
	return nil
}

// testFailCloser implements io.Closer but returns an error.
type testFailCloser struct{}

func (f *testFailCloser) Close() error {
	return errors.New("close failed")
}

// ---------------------------------------------------------------------------
// Models
// ---------------------------------------------------------------------------

// testTeaser is a leaf model reading its own resource.
type testTeaser struct {
	Path  string
	Title string
}

func newTestTeaser(ec ExecutionContext, res resource.Resource) *testTeaser {
	t := &testTeaser{Path: ec.Path()}
	if res != nil {
		t.Title = res.Properties().GetString("title", "")
	}
	return t
}

// testPage builds its teasers through the provider, relative to itself.
type testPage struct {
	Path    string
	Title   string
	Hero    *testTeaser
	Teasers []*testTeaser
}

func newTestPage(ec ExecutionContext, res resource.Resource, p *ModelProvider) (*testPage, error) {
	page := &testPage{Path: ec.Path()}
	if res != nil {
		page.Title = res.Properties().GetString("title", "")
	}

	hero, err := Get[*testTeaser](p, "hero")
	if err != nil {
		return nil, err
	}
	page.Hero = hero

	teasers, err := GetChildModels[*testTeaser](p, "teasers")
	if err != nil {
		return nil, err
	}
	page.Teasers = teasers
	return page, nil
}

// testRequestCache is context-scoped: one per context provider.
type testRequestCache struct{ ID int }

// testBroken always fails to build.
type testBroken struct{}

var errTestBroken = errors.New("broken model")

func newTestBroken() (*testBroken, error) { return nil, errTestBroken }

func newTestTree(t testing.TB) *memory.Tree {
	t.Helper()
	tree := memory.New()
	tree.Put("/content/home", resource.ValueMap{"title": "Home"})
	tree.Put("/content/home/hero", resource.ValueMap{"title": "Hero"})
	tree.Put("/content/home/teasers/first", resource.ValueMap{"title": "First"})
	tree.Put("/content/home/teasers/second", resource.ValueMap{"title": "Second"})
	tree.Put("/content/about", resource.ValueMap{"title": "About"})
	return tree
}

// newTestModels returns a built container with the test models registered.
func newTestModels(t testing.TB) Container {
	t.Helper()
	c := New()
	mustRegister(t, c, newTestTeaser, WithLifetime(Transient))
	mustRegister(t, c, newTestPage, WithLifetime(Transient))
	mustRegister(t, c, newTestBroken, WithLifetime(Transient))
	counter := 0
	mustRegister(t, c, func() *testRequestCache {
		counter++
		return &testRequestCache{ID: counter}
	}, WithLifetime(ContextScoped))
	mustBuild(t, c)
	return c
}

// testRequest bundles what one request owns.
type testRequest struct {
	stack    *ExecutionContextStack
	scope    *ContextScope
	provider *ModelProvider
}

func newTestRequest(c Container, opts ...ProviderOption) *testRequest {
	stack := NewExecutionContextStack()
	scope := NewContextScope(NewContextProvider())
	return &testRequest{
		stack:    stack,
		scope:    scope,
		provider: NewModelProvider(c, scope, MapperFor(c), stack, opts...),
	}
}

// recordingObserver logs every notification.
type recordingObserver struct {
	events []string
	errs   []error
}

func (o *recordingObserver) ModelStarted(key Key) {
	o.events = append(o.events, "start "+key.String())
}

func (o *recordingObserver) ModelFinished(key Key, _ time.Duration, err error) {
	o.events = append(o.events, fmt.Sprintf("finish %s err=%t", key, err != nil))
	o.errs = append(o.errs, err)
}

// staticScope is a Scope with fixed values for container tests.
type staticScope struct {
	values map[reflect.Type]reflect.Value
	ctx    Context
}

func (s *staticScope) Lookup(t reflect.Type) (reflect.Value, error) {
	if v, ok := s.values[t]; ok {
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s", ErrProviderNotFound, t)
}

func (s *staticScope) Context() Context { return s.ctx }
