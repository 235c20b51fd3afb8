// Package metrics aggregates pipeline counts for the dashboard.
package metrics

import (
	"context"
	"time"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

const recentJobLimit = 10

// Source is the slice of the store the collector reads.
type Source interface {
	CollectMetrics(ctx context.Context) (*store.MetricsCounts, error)
	ListJobRuns(ctx context.Context, f store.JobFilter) ([]model.JobRun, error)
}

// BusinessMetrics breaks down business counts by lead-relevant state.
type BusinessMetrics struct {
	Total             int `json:"total"`
	NoWebsite         int `json:"no_website"`
	Scored            int `json:"scored"`
	NoWebsiteScored   int `json:"no_website_scored"`
	NoWebsiteUnscored int `json:"no_website_unscored"`
}

// ExportMetrics counts outreach export rows.
type ExportMetrics struct {
	Total  int `json:"total"`
	Queued int `json:"queued"`
}

// JobSummary is one recent job run, trimmed for the dashboard.
type JobSummary struct {
	JobName        string     `json:"job_name"`
	Scope          string     `json:"scope"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ProcessedCount int        `json:"processed_count"`
	Error          string     `json:"error,omitempty"`
}

// Snapshot is the full metrics payload served at /api/metrics.
type Snapshot struct {
	Businesses BusinessMetrics `json:"businesses"`
	Domains    map[string]int  `json:"domains"`
	Contacts   int             `json:"contacts"`
	Exports    ExportMetrics   `json:"exports"`
	RecentJobs []JobSummary    `json:"recent_jobs"`
}

// Collector assembles metric snapshots from the store.
type Collector struct {
	src Source
}

// NewCollector builds a metrics collector.
func NewCollector(src Source) *Collector {
	return &Collector{src: src}
}

// Collect gathers the current snapshot.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	counts, err := c.src.CollectMetrics(ctx)
	if err != nil {
		return nil, err
	}

	runs, err := c.src.ListJobRuns(ctx, store.JobFilter{Limit: recentJobLimit})
	if err != nil {
		return nil, err
	}

	noWebsiteUnscored := counts.NoWebsite - counts.NoWebsiteScored
	if noWebsiteUnscored < 0 {
		noWebsiteUnscored = 0
	}

	snap := &Snapshot{
		Businesses: BusinessMetrics{
			Total:             counts.Businesses,
			NoWebsite:         counts.NoWebsite,
			Scored:            counts.Scored,
			NoWebsiteScored:   counts.NoWebsiteScored,
			NoWebsiteUnscored: noWebsiteUnscored,
		},
		Domains:  counts.DomainStatuses,
		Contacts: counts.Contacts,
		Exports: ExportMetrics{
			Total:  counts.Exports,
			Queued: counts.ExportsQueued,
		},
		RecentJobs: make([]JobSummary, 0, len(runs)),
	}
	for _, run := range runs {
		snap.RecentJobs = append(snap.RecentJobs, JobSummary{
			JobName:        run.JobName,
			Scope:          run.Scope,
			Status:         string(run.Status),
			StartedAt:      run.StartedAt,
			FinishedAt:     run.FinishedAt,
			ProcessedCount: run.ProcessedCount,
			Error:          run.Error,
		})
	}
	return snap, nil
}
