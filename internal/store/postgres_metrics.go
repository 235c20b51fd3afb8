package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// MetricsCounts is the raw aggregate snapshot behind the dashboard metrics
// endpoint.
type MetricsCounts struct {
	Businesses      int            `json:"businesses"`
	NoWebsite       int            `json:"no_website"`
	Scored          int            `json:"scored"`
	NoWebsiteScored int            `json:"no_website_scored"`
	DomainStatuses  map[string]int `json:"domain_statuses"`
	Contacts        int            `json:"contacts"`
	Exports         int            `json:"exports"`
	ExportsQueued   int            `json:"exports_queued"`
}

// CollectMetrics gathers the dashboard aggregates in one pass.
func (s *PostgresStore) CollectMetrics(ctx context.Context) (*MetricsCounts, error) {
	out := &MetricsCounts{DomainStatuses: map[string]int{}}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE website_url IS NULL OR website_url = ''),
			COUNT(*) FILTER (WHERE lead_score IS NOT NULL),
			COUNT(*) FILTER (WHERE (website_url IS NULL OR website_url = '') AND lead_score IS NOT NULL)
		FROM businesses`).Scan(&out.Businesses, &out.NoWebsite, &out.Scored, &out.NoWebsiteScored)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: business metrics")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM domains GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: domain metrics")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan domain metric")
		}
		out.DomainStatuses[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: domain metric rows")
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM business_contacts`).Scan(&out.Contacts)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: contact metrics")
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'queued')
		FROM business_outreach_exports`).Scan(&out.Exports, &out.ExportsQueued)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: export metrics")
	}

	return out, nil
}
