package resource

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned by a Resolver when no resource exists at a path.
var ErrNotFound = errors.New("resource not found")

// Resource is a single node of the content tree.
type Resource interface {
	// Path returns the absolute path of the resource.
	Path() string

	// Name returns the last path segment.
	Name() string

	// Properties returns the resource's own values, excluding children.
	Properties() ValueMap
}

// Resolver gives read access to a content tree.
type Resolver interface {
	// GetResource returns the resource at the absolute path p, or an error
	// wrapping ErrNotFound.
	GetResource(ctx context.Context, p string) (Resource, error)

	// ListChildren returns the direct children of the resource at p in the
	// order the backend keeps them.
	ListChildren(ctx context.Context, p string) ([]Resource, error)
}

// Simple is an immutable in-memory Resource.
type Simple struct {
	path  string
	props ValueMap
}

// New returns a Resource at p holding a copy of props.
func New(p string, props ValueMap) *Simple {
	return &Simple{path: Clean(p), props: props.Clone()}
}

func (r *Simple) Path() string { return r.path }

func (r *Simple) Name() string { return Name(r.path) }

func (r *Simple) Properties() ValueMap { return r.props }

func (r *Simple) String() string { return r.path }

// Clean normalizes p into an absolute path without trailing slash.
func Clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}

// Parent returns the path of the parent of p, "/" for top-level nodes and
// "" for the root itself.
func Parent(p string) string {
	p = Clean(p)
	if p == "/" {
		return ""
	}
	return path.Dir(p)
}

// Name returns the last segment of p, "" for the root.
func Name(p string) string {
	p = Clean(p)
	if p == "/" {
		return ""
	}
	return path.Base(p)
}

// Join appends name to the absolute path parent.
func Join(parent, name string) string {
	return Clean(parent + "/" + name)
}
