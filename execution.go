package slice

import (
	"path"
	"strings"

	"github.com/royteeuwen/slice/resource"
)

// ExecutionContext is one in-flight model resolution: the place in the
// content tree the model being built is anchored at. It is anchored either
// at a path or at a resource; for a resource the path is read from the
// resource when asked for.
type ExecutionContext struct {
	path     string
	resource resource.Resource
}

// NewPathContext returns a frame anchored at p.
func NewPathContext(p string) ExecutionContext {
	return ExecutionContext{path: p}
}

// NewResourceContext returns a frame anchored at r.
func NewResourceContext(r resource.Resource) ExecutionContext {
	return ExecutionContext{resource: r}
}

// Path returns the absolute path the frame is anchored at.
func (e ExecutionContext) Path() string {
	if e.resource != nil {
		return e.resource.Path()
	}
	return e.path
}

// Resource returns the resource the frame was anchored at, nil for path
// frames.
func (e ExecutionContext) Resource() resource.Resource {
	return e.resource
}

func (e ExecutionContext) String() string {
	return e.Path()
}

// ExecutionContextStack is the ordered set of resolutions in progress for
// one request. It is not safe for concurrent use; each request owns its own.
type ExecutionContextStack struct {
	frames []ExecutionContext
}

// NewExecutionContextStack returns an empty stack.
func NewExecutionContextStack() *ExecutionContextStack {
	return &ExecutionContextStack{}
}

// Push puts frame on top of the stack.
func (s *ExecutionContextStack) Push(frame ExecutionContext) {
	s.frames = append(s.frames, frame)
}

// Pop removes and returns the top frame. Popping an empty stack returns
// ErrEmptyStack.
func (s *ExecutionContextStack) Pop() (ExecutionContext, error) {
	n := len(s.frames)
	if n == 0 {
		return ExecutionContext{}, ErrEmptyStack
	}
	top := s.frames[n-1]
	s.frames[n-1] = ExecutionContext{}
	s.frames = s.frames[:n-1]
	return top, nil
}

// Peek returns the top frame without removing it.
func (s *ExecutionContextStack) Peek() (ExecutionContext, bool) {
	if len(s.frames) == 0 {
		return ExecutionContext{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Len returns the number of frames on the stack.
func (s *ExecutionContextStack) Len() int {
	return len(s.frames)
}

// AbsolutePath resolves p against the path of the top frame. Absolute and
// empty paths, and any path while the stack is empty, come back unchanged.
// Frames below the top are never consulted.
func (s *ExecutionContextStack) AbsolutePath(p string) string {
	if p == "" || strings.HasPrefix(p, "/") {
		return p
	}
	top, ok := s.Peek()
	if !ok {
		return p
	}
	base := top.Path()
	if base == "" {
		return p
	}
	return path.Clean(base + "/" + p)
}
