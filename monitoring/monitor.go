package monitoring

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/royteeuwen/slice"
	"github.com/royteeuwen/slice/internal/logging"
)

// Report is a point-in-time view of one node of a usage tree. Times are in
// milliseconds.
type Report struct {
	Model       string   `json:"model"`
	Count       uint64   `json:"count"`
	TotalTime   float64  `json:"totalTimeMs"`
	AverageTime float64  `json:"averageTimeMs"`
	SubModels   []Report `json:"subModels,omitempty"`
}

// Snapshot reports the sub-models of d, recursively, sorted by model name.
func Snapshot(d *ModelUsageData) []Report {
	return snapshotMap(d.subs())
}

func snapshotMap(m *sync.Map) []Report {
	reports := []Report{}
	rangeMap(m, func(key slice.Key, sub *ModelUsageData) bool {
		c := sub.Copy()
		reports = append(reports, Report{
			Model:       key.String(),
			Count:       c.Count(),
			TotalTime:   c.TotalTimeMillis(),
			AverageTime: c.AverageTime(),
			SubModels:   Snapshot(sub),
		})
		return true
	})
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Model < reports[j].Model
	})
	return reports
}

// merge adds the counts of every node in src to the node at the same place
// under dst, creating nodes as needed.
func merge(dst *ModelUsageData, src *sync.Map) {
	rangeMap(src, func(key slice.Key, sub *ModelUsageData) bool {
		target := dst.SubModel(key)
		target.Add(sub.Copy())
		merge(target, sub.subs())
		return true
	})
}

// Monitor owns the process-wide usage tree and the running totals it is
// periodically folded into.
type Monitor struct {
	live   *ModelUsageData
	logger *slog.Logger

	// mu serializes rollovers and protects totals against concurrent reads
	// during a fold.
	mu     sync.Mutex
	totals *ModelUsageData
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithLogger sets the logger used by Run.
func WithLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = l
	}
}

// NewMonitor returns a monitor with an empty live tree.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		live:   NewModelUsageData(),
		totals: NewModelUsageData(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the live tree.
func (m *Monitor) Root() *ModelUsageData {
	return m.live
}

// Tracker returns a new per-request tracker recording into the live tree.
func (m *Monitor) Tracker() *Tracker {
	return NewTracker(m.live)
}

// Live reports the live tree.
func (m *Monitor) Live() []Report {
	return Snapshot(m.live)
}

// Totals reports everything folded in by Rollover so far.
func (m *Monitor) Totals() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot(m.totals)
}

// Rollover detaches the live sub-models, folds them into the totals and
// returns their report. Builds still in progress finish into the detached
// nodes and are not counted.
func (m *Monitor) Rollover() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	period := m.live.detachSubModels()
	merge(m.totals, period)
	return snapshotMap(period)
}

// Combined reports totals plus the live tree, i.e. everything recorded
// since the monitor was created.
func (m *Monitor) Combined() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := NewModelUsageData()
	merge(all, m.totals.subs())
	merge(all, m.live.subs())
	return Snapshot(all)
}

// Run calls Rollover every interval and hands each report to fn, until ctx
// is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, fn func([]Report)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reports := m.Rollover()
			m.logger.Debug("model usage rollover", "models", len(reports))
			if fn != nil {
				fn(reports)
			}
		}
	}
}
