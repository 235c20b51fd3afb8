package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

type fakeSource struct {
	counts *store.MetricsCounts
	runs   []model.JobRun
}

func (f *fakeSource) CollectMetrics(context.Context) (*store.MetricsCounts, error) {
	return f.counts, nil
}

func (f *fakeSource) ListJobRuns(context.Context, store.JobFilter) ([]model.JobRun, error) {
	return f.runs, nil
}

func TestCollect(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeSource{
		counts: &store.MetricsCounts{
			Businesses:      120,
			NoWebsite:       80,
			Scored:          60,
			NoWebsiteScored: 50,
			DomainStatuses:  map[string]int{"hosted": 30, "registered_no_web": 7},
			Contacts:        200,
			Exports:         15,
			ExportsQueued:   5,
		},
		runs: []model.JobRun{
			{JobName: "classify_domains", Scope: model.GlobalScope, Status: model.JobSuccess, StartedAt: now, ProcessedCount: 25},
		},
	}

	snap, err := NewCollector(src).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, snap.Businesses.Total)
	assert.Equal(t, 30, snap.Businesses.NoWebsiteUnscored)
	assert.Equal(t, 30, snap.Domains["hosted"])
	assert.Equal(t, 200, snap.Contacts)
	assert.Equal(t, 5, snap.Exports.Queued)
	require.Len(t, snap.RecentJobs, 1)
	assert.Equal(t, "classify_domains", snap.RecentJobs[0].JobName)
	assert.Equal(t, "success", snap.RecentJobs[0].Status)
}

func TestCollect_NeverNegativeUnscored(t *testing.T) {
	src := &fakeSource{
		counts: &store.MetricsCounts{NoWebsite: 3, NoWebsiteScored: 9},
	}

	snap, err := NewCollector(src).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Businesses.NoWebsiteUnscored)
}
