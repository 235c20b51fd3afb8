package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_BusinessExists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("osm", "node/123").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.BusinessExists(context.Background(), "osm", "node/123")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetBusinessWebsite_ClearsScoredAt(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE businesses SET website_url = NULLIF\(\$2, ''\), scored_at = NULL`).
		WithArgs(id, "https://acme.example").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetBusinessWebsite(context.Background(), id, "https://acme.example")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScoreCandidates_IncludesWebsiteRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := uuid.New()
	score := 85.0
	created := time.Now()

	// No website predicate: a row whose verifier found a website must come
	// back so the scorer can zero its stale score.
	mock.ExpectQuery(`FROM businesses\s+WHERE scored_at IS NULL ORDER BY created_at, id`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "source_id", "name", "category", "website_url",
			"address", "lat", "lon", "lead_score", "score_reasons",
			"scored_at", "raw", "city_id", "created_at",
		}).AddRow(id, "osm", "node/1", "Acme Plumbing", "plumber",
			"https://acmeplumbing.ca/", "", nil, nil, &score, []byte(nil),
			nil, []byte(nil), nil, created))

	out, err := s.ListScoreCandidates(context.Background(), 10, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "https://acmeplumbing.ca/", out[0].WebsiteURL)
	require.NotNil(t, out[0].LeadScore)
	assert.Equal(t, 85.0, *out[0].LeadScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MergeBusinessRaw(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE businesses SET raw = COALESCE`).
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.MergeBusinessRaw(context.Background(), id, map[string]any{"searxng_verified": true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MergeBusinessRaw_EmptyPatchNoop(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.MergeBusinessRaw(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddContact_Duplicate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO business_contacts`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), model.ContactPhone, "+15551234567", "osm").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.AddContact(context.Background(), &model.BusinessContact{
		BusinessID: uuid.New(),
		Type:       model.ContactPhone,
		Value:      "+15551234567",
		Source:     "osm",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrCreateCity_Insert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	inserted := uuid.New()
	mock.ExpectQuery(`SELECT id, name, COALESCE\(country, ''\)`).
		WithArgs("Kelowna", "Canada").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO cities`).
		WithArgs(pgxmock.AnyArg(), "Kelowna", "Canada", "BC").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(inserted))

	city, err := s.GetOrCreateCity(context.Background(), "Kelowna", "Canada", "BC")
	require.NoError(t, err)
	assert.Equal(t, "Kelowna", city.Name)
	assert.Equal(t, inserted, city.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrCreateCity_LostRaceReturnsWinner(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	winner := uuid.New()
	mock.ExpectQuery(`SELECT id, name, COALESCE\(country, ''\)`).
		WithArgs("Kelowna", "Canada").
		WillReturnError(pgx.ErrNoRows)
	// A concurrent insert won; the upsert must hand back the stored id,
	// never the locally minted one.
	mock.ExpectQuery(`INSERT INTO cities`).
		WithArgs(pgxmock.AnyArg(), "Kelowna", "Canada", "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(winner))

	city, err := s.GetOrCreateCity(context.Background(), "Kelowna", "Canada", "")
	require.NoError(t, err)
	assert.Equal(t, winner, city.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateDomainStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE domains SET status = \$2, updated_at = now\(\)`).
		WithArgs(id, "registered_no_web").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateDomainStatus(context.Background(), id, model.StatusRegisteredNoWeb)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClaimDomainsForCheck(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs([]string{"new", "rdap_error"}, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "domain", "status", "created_at", "updated_at"}).
			AddRow(id, "acmeplumbing.com", "new", now, now))
	mock.ExpectExec(`UPDATE domains SET updated_at = now\(\)`).
		WithArgs([]uuid.UUID{id}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	claimed, err := s.ClaimDomainsForCheck(context.Background(),
		[]model.DomainStatus{model.StatusNew, model.StatusRDAPError}, 5)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "acmeplumbing.com", claimed[0].Domain)
	assert.Equal(t, model.StatusNew, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClaimDomainsForCheck_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs([]string{"new"}, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "domain", "status", "created_at", "updated_at"}))
	mock.ExpectCommit()

	claimed, err := s.ClaimDomainsForCheck(context.Background(),
		[]model.DomainStatus{model.StatusNew}, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StartJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Now()

	mock.ExpectQuery(`INSERT INTO job_runs`).
		WithArgs(pgxmock.AnyArg(), "pipeline_run", model.GlobalScope, "running").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(started))

	run, err := s.StartJob(context.Background(), "pipeline_run", "")
	require.NoError(t, err)
	assert.Equal(t, model.GlobalScope, run.Scope)
	assert.Equal(t, model.JobRunning, run.Status)
	assert.Equal(t, started, run.StartedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailJob_TruncatesError(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := &model.JobRun{ID: uuid.New(), JobName: "rdap_check", Status: model.JobRunning}

	mock.ExpectExec(`UPDATE job_runs`).
		WithArgs(run.ID, "failed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FailJob(context.Background(), run, strings.Repeat("x", 5000), nil)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, run.Status)
	assert.Len(t, run.Error, maxJobErrorLen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCheckpoint_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT checkpoint_value`).
		WithArgs("business_sync", model.GlobalScope, "cursor").
		WillReturnError(pgx.ErrNoRows)

	value, err := s.GetCheckpoint(context.Background(), "business_sync", "", "cursor")
	require.NoError(t, err)
	assert.Empty(t, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCheckpoint_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	runID := uuid.New()

	mock.ExpectExec(`ON CONFLICT ON CONSTRAINT job_checkpoints_unique_scope_key_uidx`).
		WithArgs(pgxmock.AnyArg(), &runID, "business_sync", model.GlobalScope, "cursor",
			"2026-08-24T00:00:00Z|00000000-0000-0000-0000-000000000001", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCheckpoint(context.Background(), "business_sync", "", "cursor",
		"2026-08-24T00:00:00Z|00000000-0000-0000-0000-000000000001",
		map[string]any{"batch": 3}, &runID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountExportsForPlatform(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM business_outreach_exports`).
		WithArgs("daily_20260824").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := s.CountExportsForPlatform(context.Background(), "daily_20260824")
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCheckpoint_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT checkpoint_value`).
		WithArgs("role_email_enrich", "kelowna", "last_id").
		WillReturnRows(pgxmock.NewRows([]string{"checkpoint_value"}).AddRow("abc123"))

	value, err := s.GetCheckpoint(context.Background(), "role_email_enrich", "kelowna", "last_id")
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}
