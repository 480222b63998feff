package monitoring_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royteeuwen/slice/monitoring"
)

// record simulates one request building a page with n teasers.
func record(m *monitoring.Monitor, n int) {
	tr := m.Tracker()
	tr.ModelStarted(pageKey)
	for i := 0; i < n; i++ {
		tr.ModelStarted(teaserKey)
		tr.ModelFinished(teaserKey, time.Millisecond, nil)
	}
	tr.ModelFinished(pageKey, 10*time.Millisecond, nil)
}

func TestSnapshot_Sorted(t *testing.T) {
	root := monitoring.NewModelUsageData()
	root.SubModel(teaserKey).AddTimeMeasurement(time.Millisecond)
	root.SubModel(pageKey).AddTimeMeasurement(3 * time.Millisecond)

	reports := monitoring.Snapshot(root)
	require.Len(t, reports, 2)
	assert.Equal(t, "*monitoring_test.page", reports[0].Model)
	assert.Equal(t, "*monitoring_test.teaser", reports[1].Model)
	assert.InDelta(t, 3.0, reports[0].TotalTime, 1e-9)
	assert.InDelta(t, 3.0, reports[0].AverageTime, 1e-9)
}

func TestSnapshot_Empty(t *testing.T) {
	reports := monitoring.Snapshot(monitoring.NewModelUsageData())
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestReport_JSON(t *testing.T) {
	root := monitoring.NewModelUsageData()
	root.SubModel(pageKey).AddTimeMeasurement(2 * time.Millisecond)

	out, err := json.Marshal(monitoring.Snapshot(root))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"model":"*monitoring_test.page","count":1,"totalTimeMs":2,"averageTimeMs":2}]`, string(out))
}

func TestMonitor_Rollover(t *testing.T) {
	m := monitoring.NewMonitor()
	record(m, 2)

	period := m.Rollover()
	require.Len(t, period, 1)
	assert.Equal(t, uint64(1), period[0].Count)
	require.Len(t, period[0].SubModels, 1)
	assert.Equal(t, uint64(2), period[0].SubModels[0].Count)

	assert.Empty(t, m.Live(), "rollover should reset the live tree")

	record(m, 3)
	period = m.Rollover()
	require.Len(t, period, 1)
	assert.Equal(t, uint64(3), period[0].SubModels[0].Count)

	totals := m.Totals()
	require.Len(t, totals, 1)
	assert.Equal(t, uint64(2), totals[0].Count)
	assert.InDelta(t, 20.0, totals[0].TotalTime, 1e-9)
	assert.Equal(t, uint64(5), totals[0].SubModels[0].Count)
}

func TestMonitor_Combined(t *testing.T) {
	m := monitoring.NewMonitor()
	record(m, 1)
	m.Rollover()
	record(m, 1)

	combined := m.Combined()
	require.Len(t, combined, 1)
	assert.Equal(t, uint64(2), combined[0].Count)
	assert.Equal(t, uint64(2), combined[0].SubModels[0].Count)

	live := m.Live()
	require.Len(t, live, 1)
	assert.Equal(t, uint64(1), live[0].Count, "combined must not fold the live tree")
}

func TestMonitor_Run(t *testing.T) {
	m := monitoring.NewMonitor()
	record(m, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []monitoring.Report, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, 5*time.Millisecond, func(r []monitoring.Report) {
			if len(r) > 0 {
				select {
				case got <- r:
				default:
				}
			}
		})
	}()

	select {
	case r := <-got:
		require.Len(t, r, 1)
		assert.Equal(t, uint64(1), r[0].Count)
	case <-time.After(2 * time.Second):
		t.Fatal("no rollover report received")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
