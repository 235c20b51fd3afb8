package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/domain-lead-pipeline/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. Connections
// are recycled hourly so long-running workers never sit on stale sessions.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = time.Hour
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	pgxCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cities (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name       TEXT NOT NULL,
	country    TEXT,
	region     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT cities_name_country_uidx UNIQUE (name, country)
);

CREATE TABLE IF NOT EXISTS businesses (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	source        TEXT NOT NULL,
	source_id     TEXT NOT NULL,
	name          TEXT,
	category      TEXT,
	website_url   TEXT,
	address       TEXT,
	lat           DOUBLE PRECISION,
	lon           DOUBLE PRECISION,
	lead_score    DOUBLE PRECISION,
	score_reasons JSONB,
	scored_at     TIMESTAMPTZ,
	raw           JSONB,
	city_id       UUID REFERENCES cities(id),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT businesses_source_uidx UNIQUE (source, source_id)
);

CREATE INDEX IF NOT EXISTS idx_businesses_created_id ON businesses(created_at, id);
CREATE INDEX IF NOT EXISTS idx_businesses_lead_score ON businesses(lead_score DESC);
CREATE INDEX IF NOT EXISTS idx_businesses_scored_at ON businesses(scored_at);
CREATE INDEX IF NOT EXISTS idx_businesses_city_id ON businesses(city_id);
CREATE INDEX IF NOT EXISTS idx_businesses_raw ON businesses USING GIN (raw);

CREATE TABLE IF NOT EXISTS business_contacts (
	id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	business_id  UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	contact_type TEXT NOT NULL,
	value        TEXT NOT NULL,
	source       TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT business_contacts_unique_value_uidx UNIQUE (business_id, contact_type, value)
);

CREATE INDEX IF NOT EXISTS idx_business_contacts_business ON business_contacts(business_id);

CREATE TABLE IF NOT EXISTS domains (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	domain     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'new',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT domains_domain_uidx UNIQUE (domain)
);

CREATE INDEX IF NOT EXISTS idx_domains_status ON domains(status);

CREATE TABLE IF NOT EXISTS whois_checks (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	domain_id     UUID NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
	is_registered BOOLEAN,
	is_parked     BOOLEAN,
	has_a         BOOLEAN,
	has_aaaa      BOOLEAN,
	has_cname     BOOLEAN,
	has_mx        BOOLEAN,
	has_http      BOOLEAN,
	http_status   INTEGER,
	registrar     TEXT,
	raw           JSONB,
	checked_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_whois_checks_domain ON whois_checks(domain_id, checked_at DESC);

CREATE TABLE IF NOT EXISTS business_domain_links (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	domain_id   UUID NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
	source      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT business_domain_links_business_domain_uidx UNIQUE (business_id, domain_id)
);

CREATE INDEX IF NOT EXISTS idx_links_domain ON business_domain_links(domain_id);

CREATE TABLE IF NOT EXISTS business_outreach_exports (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	platform    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	exported_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	raw         JSONB,
	CONSTRAINT business_outreach_exports_business_platform_uidx UNIQUE (business_id, platform)
);

CREATE INDEX IF NOT EXISTS idx_exports_platform ON business_outreach_exports(platform);

CREATE TABLE IF NOT EXISTS job_runs (
	id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	job_name        TEXT NOT NULL,
	scope           TEXT NOT NULL DEFAULT '__global__',
	status          TEXT NOT NULL DEFAULT 'running',
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at     TIMESTAMPTZ,
	processed_count INTEGER NOT NULL DEFAULT 0,
	details         JSONB,
	error           TEXT
);

CREATE INDEX IF NOT EXISTS idx_job_runs_started ON job_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_job_runs_name ON job_runs(job_name, started_at DESC);

CREATE TABLE IF NOT EXISTS job_checkpoints (
	id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	job_run_id       UUID REFERENCES job_runs(id) ON DELETE SET NULL,
	job_name         TEXT NOT NULL,
	scope            TEXT NOT NULL DEFAULT '__global__',
	checkpoint_key   TEXT NOT NULL,
	checkpoint_value TEXT NOT NULL,
	details          JSONB,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT job_checkpoints_unique_scope_key_uidx UNIQUE (job_name, scope, checkpoint_key)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// marshalJSON marshals a possibly-nil map for a JSONB column.
func marshalJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal json")
	}
	return data, nil
}

func unmarshalJSON(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal json")
	}
	return m, nil
}

// withTx runs fn inside one transaction; partial batches never commit.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}
