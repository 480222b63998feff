package redistree_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royteeuwen/slice/resource"
	"github.com/royteeuwen/slice/resource/memory"
	"github.com/royteeuwen/slice/resource/redistree"
)

func newTree(t *testing.T, opts ...redistree.Option) (*redistree.Tree, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	tree := redistree.NewFromClient(client, opts...)
	t.Cleanup(func() { tree.Close() })
	return tree, mr
}

// failLinks makes every command batch that appends a child link fail while
// it is enabled.
type failLinks struct {
	enabled atomic.Bool
}

var errLinkFailed = errors.New("link failed")

func (h *failLinks) fail(cmds ...backend.Cmder) bool {
	if !h.enabled.Load() {
		return false
	}
	for _, cmd := range cmds {
		if cmd.Name() == "rpush" {
			return true
		}
	}
	return false
}

func (h *failLinks) DialHook(next backend.DialHook) backend.DialHook { return next }

func (h *failLinks) ProcessHook(next backend.ProcessHook) backend.ProcessHook {
	return func(ctx context.Context, cmd backend.Cmder) error {
		if h.fail(cmd) {
			return errLinkFailed
		}
		return next(ctx, cmd)
	}
}

func (h *failLinks) ProcessPipelineHook(next backend.ProcessPipelineHook) backend.ProcessPipelineHook {
	return func(ctx context.Context, cmds []backend.Cmder) error {
		if h.fail(cmds...) {
			return errLinkFailed
		}
		return next(ctx, cmds)
	}
}

func TestTree_PutAndGet(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	require.NoError(t, tree.Ping(ctx))
	require.NoError(t, tree.Put(ctx, "/content/home", resource.ValueMap{
		"title": "Home",
		"order": 3,
		"tags":  []string{"a", "b"},
	}))

	home, err := tree.GetResource(ctx, "/content/home")
	require.NoError(t, err)
	assert.Equal(t, "/content/home", home.Path())
	assert.Equal(t, "Home", home.Properties().GetString("title", ""))
	assert.Equal(t, 3, home.Properties().GetInt("order", 0))
	assert.Equal(t, []string{"a", "b"}, home.Properties().GetStrings("tags"))

	content, err := tree.GetResource(ctx, "/content")
	require.NoError(t, err, "ancestors are created")
	assert.Empty(t, content.Properties())
}

func TestTree_ChildrenKeepOrder(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, tree.Put(ctx, "/list/"+name, resource.ValueMap{"name": name}))
	}
	require.NoError(t, tree.Put(ctx, "/list/a", resource.ValueMap{"extra": true}))

	children, err := tree.ListChildren(ctx, "/list")
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "c", children[0].Name())
	assert.Equal(t, "a", children[1].Name())
	assert.Equal(t, "b", children[2].Name())
	assert.Equal(t, "a", children[1].Properties().GetString("name", ""))
	assert.True(t, children[1].Properties().GetBool("extra", false))

	empty, err := tree.ListChildren(ctx, "/list/a")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTree_NotFound(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	_, err := tree.GetResource(ctx, "/missing")
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = tree.ListChildren(ctx, "/missing")
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestTree_Prefix(t *testing.T) {
	tree, mr := newTree(t, redistree.WithPrefix("test:"))
	require.NoError(t, tree.Put(context.Background(), "/a", resource.ValueMap{"x": 1}))

	assert.True(t, mr.Exists("test:nodes"))
	assert.True(t, mr.Exists("test:props:/a"))
	assert.True(t, mr.Exists("test:children:/"))
}

func TestTree_ForeignValuesKeptAsStrings(t *testing.T) {
	tree, mr := newTree(t)
	ctx := context.Background()
	require.NoError(t, tree.Put(ctx, "/a", nil))

	mr.HSet("slice:tree:props:/a", "raw", "not json")

	a, err := tree.GetResource(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, "not json", a.Properties().GetString("raw", ""))
}

func TestTree_Import(t *testing.T) {
	src, err := memory.Load(strings.NewReader(`
content:
  home:
    title: Home
    teasers:
      first: {title: First}
      second: {title: Second}
`))
	require.NoError(t, err)

	tree, _ := newTree(t)
	ctx := context.Background()
	require.NoError(t, tree.Import(ctx, src, "/content"))

	teasers, err := tree.ListChildren(ctx, "/content/home/teasers")
	require.NoError(t, err)
	require.Len(t, teasers, 2)
	assert.Equal(t, "First", teasers[0].Properties().GetString("title", ""))
	assert.Equal(t, "Second", teasers[1].Properties().GetString("title", ""))

	assert.ErrorIs(t, tree.Import(ctx, src, "/missing"), resource.ErrNotFound)
}

func TestTree_FailedLinkLeavesNoOrphan(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	hook := &failLinks{}
	client.AddHook(hook)
	tree := redistree.NewFromClient(client)
	t.Cleanup(func() { tree.Close() })
	ctx := context.Background()

	require.NoError(t, tree.Put(ctx, "/content", nil))

	hook.enabled.Store(true)
	err := tree.Put(ctx, "/content/home", resource.ValueMap{"title": "Home"})
	require.ErrorIs(t, err, errLinkFailed)

	_, err = tree.GetResource(ctx, "/content/home")
	assert.ErrorIs(t, err, resource.ErrNotFound, "a node is only registered together with its link")

	hook.enabled.Store(false)
	require.NoError(t, tree.Put(ctx, "/content/home", resource.ValueMap{"title": "Home"}))

	children, err := tree.ListChildren(ctx, "/content")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/content/home", children[0].Path())
}
