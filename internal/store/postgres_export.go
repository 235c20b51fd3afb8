package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/domain-lead-pipeline/internal/db"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

func (s *PostgresStore) CountExportsForPlatform(ctx context.Context, platform string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM business_outreach_exports WHERE platform = $1`,
		platform).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count exports")
	}
	return count, nil
}

// RecordExports marks businesses as exported to platform. Rows that
// already exist are skipped, which makes re-export idempotent.
func (s *PostgresStore) RecordExports(ctx context.Context, platform string, businessIDs []uuid.UUID) error {
	if len(businessIDs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(businessIDs))
	for _, id := range businessIDs {
		rows = append(rows, []any{uuid.New(), id, platform, string(model.ExportQueued)})
	}

	_, err := db.Upsert{
		Table:         "business_outreach_exports",
		Columns:       []string{"id", "business_id", "platform", "status"},
		Keys:          []string{"business_id", "platform"},
		SkipConflicts: true,
	}.Run(ctx, s.pool, rows)
	return eris.Wrap(err, "postgres: record exports")
}

func (s *PostgresStore) ExportedBusinessIDs(ctx context.Context, platform string, businessIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	if len(businessIDs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT business_id FROM business_outreach_exports
		WHERE platform = $1 AND business_id = ANY($2)`,
		platform, businessIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: exported business ids")
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan exported id")
		}
		out[id] = true
	}
	return out, eris.Wrap(rows.Err(), "postgres: exported id rows")
}
