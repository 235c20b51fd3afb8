package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a bulk insert-or-update into one table. Rows are staged
// into a temp table with COPY and merged with a single INSERT ... ON
// CONFLICT, which keeps large batches to two round trips.
type Upsert struct {
	Table   string
	Columns []string
	Keys    []string // unique-constraint columns

	// SkipConflicts uses DO NOTHING, so existing rows are left untouched.
	SkipConflicts bool

	// UpdateColumns limits which columns DO UPDATE overwrites. Nil means
	// every non-key column.
	UpdateColumns []string
}

// Run stages rows and merges them, returning the number of rows written.
// With SkipConflicts set, rows that already existed do not count, which is
// how sync workers report newly inserted totals.
func (u Upsert) Run(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(u.Columns) == 0 {
		return 0, eris.Errorf("db: upsert %s: no columns", u.Table)
	}
	if len(u.Keys) == 0 {
		return 0, eris.Errorf("db: upsert %s: no key columns", u.Table)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: begin", u.Table)
	}
	defer tx.Rollback(ctx)

	staging := u.stagingTable()
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{staging}.Sanitize(),
		quoteTable(u.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create staging table", u.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: copy into staging", u.Table)
	}

	tag, err := tx.Exec(ctx, u.mergeSQL(staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", u.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: commit", u.Table)
	}
	return tag.RowsAffected(), nil
}

func (u Upsert) stagingTable() string {
	return "_stg_" + strings.ReplaceAll(u.Table, ".", "_")
}

func (u Upsert) mergeSQL(staging string) string {
	cols := quoteColumns(u.Columns)
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		quoteTable(u.Table),
		cols,
		cols,
		pgx.Identifier{staging}.Sanitize(),
		quoteColumns(u.Keys),
		u.conflictAction(),
	)
}

func (u Upsert) conflictAction() string {
	if u.SkipConflicts {
		return "DO NOTHING"
	}

	update := u.UpdateColumns
	if update == nil {
		key := make(map[string]bool, len(u.Keys))
		for _, k := range u.Keys {
			key[k] = true
		}
		for _, c := range u.Columns {
			if !key[c] {
				update = append(update, c)
			}
		}
	}

	sets := make([]string, len(update))
	for i, col := range update {
		q := pgx.Identifier{col}.Sanitize()
		sets[i] = q + " = EXCLUDED." + q
	}
	return "DO UPDATE SET " + strings.Join(sets, ", ")
}

// quoteTable handles schema-qualified names like "public.domains".
func quoteTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
