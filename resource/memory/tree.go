// Package memory provides an in-memory resource tree, typically loaded from
// YAML.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/royteeuwen/slice/resource"
)

var _ resource.Resolver = (*Tree)(nil)

// Tree is a resource.Resolver over an in-memory map of nodes. Children keep
// the order they were added in. It is safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

type node struct {
	props    resource.ValueMap
	children []string
}

// New returns a tree holding only the root node.
func New() *Tree {
	return &Tree{
		nodes: map[string]*node{"/": {props: resource.ValueMap{}}},
	}
}

// Put creates or replaces the properties of the node at p. Missing
// ancestors are created empty.
func (t *Tree) Put(p string, props resource.ValueMap) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.ensure(resource.Clean(p))
	n.props = props.Clone()
}

// ensure returns the node at p, creating it and its ancestors. The caller
// holds the write lock.
func (t *Tree) ensure(p string) *node {
	if n, ok := t.nodes[p]; ok {
		return n
	}
	n := &node{props: resource.ValueMap{}}
	t.nodes[p] = n
	if parent := resource.Parent(p); parent != "" {
		pn := t.ensure(parent)
		pn.children = append(pn.children, resource.Name(p))
	}
	return n
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

func (t *Tree) GetResource(ctx context.Context, p string) (resource.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = resource.Clean(p)
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, p)
	}
	return resource.New(p, n.props), nil
}

func (t *Tree) ListChildren(ctx context.Context, p string) ([]resource.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = resource.Clean(p)
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, p)
	}

	children := make([]resource.Resource, 0, len(n.children))
	for _, name := range n.children {
		cp := resource.Join(p, name)
		children = append(children, resource.New(cp, t.nodes[cp].props))
	}
	return children, nil
}

// ---------------------------------------------------------------------------
// YAML
// ---------------------------------------------------------------------------

// LoadFile reads a tree from the YAML file at path, see Load.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tree file: %w", err)
	}
	defer f.Close()

	tree, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return tree, nil
}

// Load reads a tree from YAML. Every mapping value becomes a child node,
// every other value a property of the enclosing node; top-level keys hang
// off the root:
//
//	content:
//	  home:
//	    title: Home
//	    teasers:
//	      first: {title: First}
//
// An empty document yields an empty tree.
func Load(r io.Reader) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("tree root must be a mapping, line %d", root.Line)
	}

	t := New()
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.load("/", root); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) load(p string, m *yaml.Node) error {
	n := t.ensure(p)

	type child struct {
		name string
		node *yaml.Node
	}
	var children []child

	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}

		if val.Kind == yaml.MappingNode {
			if !validName(key.Value) {
				return fmt.Errorf("invalid node name %q at line %d", key.Value, key.Line)
			}
			children = append(children, child{name: key.Value, node: val})
			continue
		}

		var v any
		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("property %s of %s: %w", key.Value, p, err)
		}
		n.props[key.Value] = v
	}

	for _, c := range children {
		if err := t.load(resource.Join(p, c.name), c.node); err != nil {
			return err
		}
	}
	return nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}
