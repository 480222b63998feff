// Package redistree stores a resource tree in Redis.
//
// Every node is a member of the "<prefix>nodes" set. Its properties live in
// the hash "<prefix>props:<path>" as JSON-encoded fields and the names of
// its children, in insertion order, in the list "<prefix>children:<path>".
package redistree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/royteeuwen/slice/resource"
)

var _ resource.Resolver = (*Tree)(nil)

const maxRetries = 10

// Tree implements resource.Resolver on Redis.
type Tree struct {
	client *backend.Client
	prefix string
}

// Option configures a Tree.
type Option func(*Tree)

// WithPrefix sets the key prefix. The default is "slice:tree:".
func WithPrefix(prefix string) Option {
	return func(t *Tree) {
		t.prefix = prefix
	}
}

// New connects a tree to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Tree {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a tree on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Tree {
	t := &Tree{
		client: client,
		prefix: "slice:tree:",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ping checks the connection.
func (t *Tree) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (t *Tree) Close() error {
	return t.client.Close()
}

func (t *Tree) nodesKey() string            { return t.prefix + "nodes" }
func (t *Tree) propsKey(p string) string    { return t.prefix + "props:" + p }
func (t *Tree) childrenKey(p string) string { return t.prefix + "children:" + p }

// Put creates the node at p, and any missing ancestor, and sets the given
// properties on it. Existing properties not in props are kept.
func (t *Tree) Put(ctx context.Context, p string, props resource.ValueMap) error {
	p = resource.Clean(p)
	if err := t.ensure(ctx, p); err != nil {
		return err
	}
	if len(props) == 0 {
		return nil
	}

	fields := make(map[string]any, len(props))
	for k, v := range props {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding property %s of %s: %w", k, p, err)
		}
		fields[k] = string(b)
	}
	if err := t.client.HSet(ctx, t.propsKey(p), fields).Err(); err != nil {
		return fmt.Errorf("saving properties of %s: %w", p, err)
	}
	return nil
}

// ensure registers p and links it under its parent in one transaction, so
// a member of the node set is always listed by its parent.
func (t *Tree) ensure(ctx context.Context, p string) error {
	ok, err := t.client.SIsMember(ctx, t.nodesKey(), p).Result()
	if err != nil {
		return fmt.Errorf("looking up %s: %w", p, err)
	}
	if ok {
		return nil
	}

	parent := resource.Parent(p)
	if parent != "" {
		if err := t.ensure(ctx, parent); err != nil {
			return err
		}
	}

	register := func(tx *backend.Tx) error {
		ok, err := tx.SIsMember(ctx, t.nodesKey(), p).Result()
		if err != nil || ok {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.SAdd(ctx, t.nodesKey(), p)
			if parent != "" {
				pipe.RPush(ctx, t.childrenKey(parent), resource.Name(p))
			}
			return nil
		})
		return err
	}

	for range maxRetries {
		err = t.client.Watch(ctx, register, t.nodesKey())
		if !errors.Is(err, backend.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("registering %s: %w", p, err)
	}
	return nil
}

func (t *Tree) exists(ctx context.Context, p string) error {
	ok, err := t.client.SIsMember(ctx, t.nodesKey(), p).Result()
	if err != nil {
		return fmt.Errorf("looking up %s: %w", p, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", resource.ErrNotFound, p)
	}
	return nil
}

func (t *Tree) GetResource(ctx context.Context, p string) (resource.Resource, error) {
	p = resource.Clean(p)
	if err := t.exists(ctx, p); err != nil {
		return nil, err
	}

	fields, err := t.client.HGetAll(ctx, t.propsKey(p)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading properties of %s: %w", p, err)
	}
	return resource.New(p, decode(fields)), nil
}

func (t *Tree) ListChildren(ctx context.Context, p string) ([]resource.Resource, error) {
	p = resource.Clean(p)
	if err := t.exists(ctx, p); err != nil {
		return nil, err
	}

	names, err := t.client.LRange(ctx, t.childrenKey(p), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", p, err)
	}
	if len(names) == 0 {
		return []resource.Resource{}, nil
	}

	cmds := make([]*backend.MapStringStringCmd, len(names))
	_, err = t.client.Pipelined(ctx, func(pipe backend.Pipeliner) error {
		for i, name := range names {
			cmds[i] = pipe.HGetAll(ctx, t.propsKey(resource.Join(p, name)))
		}
		return nil
	})
	if err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("reading children of %s: %w", p, err)
	}

	children := make([]resource.Resource, len(names))
	for i, name := range names {
		children[i] = resource.New(resource.Join(p, name), decode(cmds[i].Val()))
	}
	return children, nil
}

// Import copies the subtree of src rooted at root into t.
func (t *Tree) Import(ctx context.Context, src resource.Resolver, root string) error {
	res, err := src.GetResource(ctx, root)
	if err != nil {
		return err
	}
	if err := t.Put(ctx, res.Path(), res.Properties()); err != nil {
		return err
	}

	children, err := src.ListChildren(ctx, res.Path())
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := t.Import(ctx, src, child.Path()); err != nil {
			return err
		}
	}
	return nil
}

// decode turns JSON-encoded hash fields back into values. Fields that are
// not valid JSON, e.g. written by other tools, are kept as strings.
func decode(fields map[string]string) resource.ValueMap {
	props := make(resource.ValueMap, len(fields))
	for k, raw := range fields {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			props[k] = raw
			continue
		}
		props[k] = v
	}
	return props
}
