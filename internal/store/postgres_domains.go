package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/domain-lead-pipeline/internal/db"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// UpsertDomains inserts normalized domains, returning how many were new.
// Existing rows keep their status untouched.
func (s *PostgresStore) UpsertDomains(ctx context.Context, domains []string) (int64, error) {
	if len(domains) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(domains))
	for _, d := range domains {
		rows = append(rows, []any{uuid.New(), d})
	}

	n, err := db.Upsert{
		Table:         "domains",
		Columns:       []string{"id", "domain"},
		Keys:          []string{"domain"},
		SkipConflicts: true,
	}.Run(ctx, s.pool, rows)
	return n, eris.Wrap(err, "postgres: upsert domains")
}

func (s *PostgresStore) DomainIDs(ctx context.Context, domains []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID)
	if len(domains) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, domain FROM domains WHERE domain = ANY($1)`, domains)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: domain ids")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     uuid.UUID
			domain string
		)
		if err := rows.Scan(&id, &domain); err != nil {
			return nil, eris.Wrap(err, "postgres: scan domain id")
		}
		out[domain] = id
	}
	return out, eris.Wrap(rows.Err(), "postgres: domain id rows")
}

// InsertDomainLinks records business<->domain links, returning how many
// were new. Duplicate pairs are silently skipped.
func (s *PostgresStore) InsertDomainLinks(ctx context.Context, links []model.BusinessDomainLink) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(links))
	for _, l := range links {
		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		rows = append(rows, []any{id, l.BusinessID, l.DomainID, string(l.Source)})
	}

	n, err := db.Upsert{
		Table:         "business_domain_links",
		Columns:       []string{"id", "business_id", "domain_id", "source"},
		Keys:          []string{"business_id", "domain_id"},
		SkipConflicts: true,
	}.Run(ctx, s.pool, rows)
	return n, eris.Wrap(err, "postgres: insert domain links")
}

func (s *PostgresStore) LinkedDomainsFor(ctx context.Context, businessIDs []uuid.UUID) ([]LinkedDomain, error) {
	if len(businessIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT l.business_id, d.id, d.domain, d.status, l.source
		FROM business_domain_links l
		JOIN domains d ON d.id = l.domain_id
		WHERE l.business_id = ANY($1)
		ORDER BY l.business_id, d.domain`, businessIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: linked domains")
	}
	defer rows.Close()

	var out []LinkedDomain
	for rows.Next() {
		var ld LinkedDomain
		if err := rows.Scan(&ld.BusinessID, &ld.DomainID, &ld.Domain, &ld.Status, &ld.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan linked domain")
		}
		out = append(out, ld)
	}
	return out, eris.Wrap(rows.Err(), "postgres: linked domain rows")
}

// ClaimDomainsForCheck locks a batch of domains in the given statuses so
// concurrent classifier workers never process the same domain twice. The
// claim bumps updated_at, which rotates starvation-free through the queue.
func (s *PostgresStore) ClaimDomainsForCheck(ctx context.Context, statuses []model.DomainStatus, limit int) ([]model.Domain, error) {
	if limit <= 0 {
		limit = 100
	}
	statusStrs := make([]string, 0, len(statuses))
	for _, st := range statuses {
		statusStrs = append(statusStrs, string(st))
	}

	var out []model.Domain
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, domain, status, created_at, updated_at
			FROM domains
			WHERE status = ANY($1)
			ORDER BY updated_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED`, statusStrs, limit)
		if err != nil {
			return eris.Wrap(err, "postgres: claim domains")
		}
		defer rows.Close()

		for rows.Next() {
			var d model.Domain
			if err := rows.Scan(&d.ID, &d.Domain, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
				return eris.Wrap(err, "postgres: scan claimed domain")
			}
			out = append(out, d)
		}
		if err := rows.Err(); err != nil {
			return eris.Wrap(err, "postgres: claimed domain rows")
		}

		if len(out) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(out))
		for _, d := range out {
			ids = append(ids, d.ID)
		}
		_, err = tx.Exec(ctx,
			`UPDATE domains SET updated_at = now() WHERE id = ANY($1)`, ids)
		return eris.Wrap(err, "postgres: touch claimed domains")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateDomainStatus(ctx context.Context, id uuid.UUID, status model.DomainStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE domains SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	return eris.Wrap(err, "postgres: update domain status")
}

func (s *PostgresStore) InsertWhoisCheck(ctx context.Context, check *model.WhoisCheck) error {
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}
	rawData, err := marshalJSON(check.Raw)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO whois_checks (id, domain_id, is_registered, is_parked, has_a, has_aaaa,
			has_cname, has_mx, has_http, http_status, registrar, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12)`,
		check.ID, check.DomainID, check.IsRegistered, check.IsParked, check.HasA, check.HasAAAA,
		check.HasCNAME, check.HasMX, check.HasHTTP, check.HTTPStatus, check.Registrar, rawData)
	return eris.Wrap(err, "postgres: insert whois check")
}

// BusinessIDsLinkedToDomains returns the distinct businesses touching any
// of the given domains; classification changes fan out to rescoring here.
func (s *PostgresStore) BusinessIDsLinkedToDomains(ctx context.Context, domainIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(domainIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT business_id FROM business_domain_links WHERE domain_id = ANY($1)`,
		domainIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: businesses for domains")
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan business id")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "postgres: business id rows")
}
