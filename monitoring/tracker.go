package monitoring

import (
	"time"

	"github.com/royteeuwen/slice"
)

var _ slice.Observer = (*Tracker)(nil)

// Tracker records the models built by one request. It keeps the chain of
// models in progress so that a nested model lands under its parent; a model
// that recursively builds its own type gets a new level, never the same
// node twice. Like the ModelProvider it observes, it is not safe for
// concurrent use.
type Tracker struct {
	root  *ModelUsageData
	nodes []*ModelUsageData
}

// NewTracker returns a tracker recording under root.
func NewTracker(root *ModelUsageData) *Tracker {
	return &Tracker{root: root}
}

// ModelStarted descends into the node for key.
func (t *Tracker) ModelStarted(key slice.Key) {
	parent := t.root
	if n := len(t.nodes); n > 0 {
		parent = t.nodes[n-1]
	}
	t.nodes = append(t.nodes, parent.SubModel(key))
}

// ModelFinished records elapsed on the innermost node and leaves it. Failed
// builds are counted like successful ones.
func (t *Tracker) ModelFinished(_ slice.Key, elapsed time.Duration, _ error) {
	n := len(t.nodes)
	if n == 0 {
		return
	}
	node := t.nodes[n-1]
	t.nodes[n-1] = nil
	t.nodes = t.nodes[:n-1]
	node.AddTimeMeasurement(elapsed)
}

// Depth returns the number of models in progress.
func (t *Tracker) Depth() int {
	return len(t.nodes)
}
