package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertRunEmptyRows(t *testing.T) {
	n, err := Upsert{
		Table:   "domains",
		Columns: []string{"id", "domain"},
		Keys:    []string{"domain"},
	}.Run(nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpsertRunRejectsMissingColumns(t *testing.T) {
	_, err := Upsert{
		Table: "domains",
		Keys:  []string{"domain"},
	}.Run(nil, nil, [][]any{{1, "a.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestUpsertRunRejectsMissingKeys(t *testing.T) {
	_, err := Upsert{
		Table:   "domains",
		Columns: []string{"id", "domain"},
	}.Run(nil, nil, [][]any{{1, "a.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key columns")
}

func TestUpsertMergeSQL(t *testing.T) {
	u := Upsert{
		Table:   "domains",
		Columns: []string{"id", "domain", "status"},
		Keys:    []string{"domain"},
	}
	sql := u.mergeSQL(u.stagingTable())
	assert.Equal(t,
		`INSERT INTO "domains" ("id", "domain", "status") SELECT "id", "domain", "status" FROM "_stg_domains" ON CONFLICT ("domain") DO UPDATE SET "id" = EXCLUDED."id", "status" = EXCLUDED."status"`,
		sql)
}

func TestUpsertConflictAction(t *testing.T) {
	t.Run("skip conflicts", func(t *testing.T) {
		u := Upsert{Columns: []string{"id"}, Keys: []string{"id"}, SkipConflicts: true}
		assert.Equal(t, "DO NOTHING", u.conflictAction())
	})

	t.Run("explicit update columns", func(t *testing.T) {
		u := Upsert{
			Columns:       []string{"id", "name", "score"},
			Keys:          []string{"id"},
			UpdateColumns: []string{"score"},
		}
		assert.Equal(t, `DO UPDATE SET "score" = EXCLUDED."score"`, u.conflictAction())
	})
}

func TestQuoteTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"domains", `"domains"`},
		{"public.business_domain_links", `"public"."business_domain_links"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteTable(tt.input))
		})
	}
}

func TestQuoteColumns(t *testing.T) {
	assert.Equal(t, `"business_id", "domain_id", "source"`,
		quoteColumns([]string{"business_id", "domain_id", "source"}))
}
