package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/royteeuwen/slice"
)

// ModelUsageData counts the builds of one model type and their total time,
// and holds one child per model type built during those builds. It is safe
// for concurrent use; the zero value is ready to use.
type ModelUsageData struct {
	count     atomic.Uint64
	totalTime atomic.Uint64

	// subModels maps slice.Key to *ModelUsageData.
	subModels atomic.Pointer[sync.Map]
}

// NewModelUsageData returns an empty node.
func NewModelUsageData() *ModelUsageData {
	return &ModelUsageData{}
}

// AddTimeMeasurement records one build that took elapsed. Negative
// durations count as zero.
func (d *ModelUsageData) AddTimeMeasurement(elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	d.count.Add(1)
	d.totalTime.Add(uint64(elapsed))
}

// Count returns the number of recorded builds.
func (d *ModelUsageData) Count() uint64 {
	return d.count.Load()
}

// TotalTime returns the summed build time.
func (d *ModelUsageData) TotalTime() time.Duration {
	return time.Duration(d.totalTime.Load())
}

// TotalTimeMillis returns the summed build time in milliseconds.
func (d *ModelUsageData) TotalTimeMillis() float64 {
	return millis(d.totalTime.Load())
}

// AverageTime returns the mean build time in milliseconds, or 0 when nothing
// was recorded.
func (d *ModelUsageData) AverageTime() float64 {
	count := d.count.Load()
	if count == 0 {
		return 0
	}
	return millis(d.totalTime.Load()) / float64(count)
}

// Add merges the counts of other into d. Sub-models are not merged.
func (d *ModelUsageData) Add(other *ModelUsageData) {
	d.count.Add(other.count.Load())
	d.totalTime.Add(other.totalTime.Load())
}

// Copy returns a node with d's current counts and no sub-models. Later
// measurements on d do not affect the copy.
func (d *ModelUsageData) Copy() *ModelUsageData {
	c := &ModelUsageData{}
	c.count.Store(d.count.Load())
	c.totalTime.Store(d.totalTime.Load())
	return c
}

// ClearSubModels replaces the sub-models with an empty set. Nodes handed
// out before stay valid but are no longer reachable from d.
func (d *ModelUsageData) ClearSubModels() {
	d.detachSubModels()
}

// SubModel returns the child for key, creating it if needed.
func (d *ModelUsageData) SubModel(key slice.Key) *ModelUsageData {
	subs := d.subs()
	if v, ok := subs.Load(key); ok {
		return v.(*ModelUsageData)
	}
	v, _ := subs.LoadOrStore(key, &ModelUsageData{})
	return v.(*ModelUsageData)
}

// SubModels returns a snapshot of the children.
func (d *ModelUsageData) SubModels() map[slice.Key]*ModelUsageData {
	out := make(map[slice.Key]*ModelUsageData)
	d.RangeSubModels(func(k slice.Key, v *ModelUsageData) bool {
		out[k] = v
		return true
	})
	return out
}

// RangeSubModels calls fn for every child until fn returns false.
func (d *ModelUsageData) RangeSubModels(fn func(key slice.Key, sub *ModelUsageData) bool) {
	rangeMap(d.subs(), fn)
}

func (d *ModelUsageData) subs() *sync.Map {
	if m := d.subModels.Load(); m != nil {
		return m
	}
	d.subModels.CompareAndSwap(nil, new(sync.Map))
	return d.subModels.Load()
}

// detachSubModels swaps in an empty set and returns the previous one.
func (d *ModelUsageData) detachSubModels() *sync.Map {
	old := d.subModels.Swap(new(sync.Map))
	if old == nil {
		old = new(sync.Map)
	}
	return old
}

func rangeMap(m *sync.Map, fn func(key slice.Key, sub *ModelUsageData) bool) {
	m.Range(func(k, v any) bool {
		return fn(k.(slice.Key), v.(*ModelUsageData))
	})
}

func millis(nanos uint64) float64 {
	return float64(nanos) / float64(time.Millisecond)
}
