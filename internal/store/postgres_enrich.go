package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// EnrichPriority selects which businesses an enrichment pass targets.
type EnrichPriority string

const (
	PriorityNoContacts EnrichPriority = "no_contacts"
	PriorityNoPhone    EnrichPriority = "no_phone"
	PriorityAll        EnrichPriority = "all"
)

// ListEnrichmentCandidates returns named businesses whose raw map lacks
// rawKey, filtered by the priority bucket. Businesses without a website
// sort first so enrichment budget goes to actual lead candidates.
func (s *PostgresStore) ListEnrichmentCandidates(ctx context.Context, rawKey string, priority EnrichPriority, limit int) ([]BusinessWithCity, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + businessSelectColsB + `,
		COALESCE(c.name, ''), COALESCE(c.country, '')
		FROM businesses b
		LEFT JOIN cities c ON c.id = b.city_id
		WHERE b.name IS NOT NULL AND b.name <> ''
			AND NOT (COALESCE(b.raw, '{}'::jsonb) ? $1)`

	switch priority {
	case PriorityNoContacts:
		query += ` AND NOT EXISTS (
			SELECT 1 FROM business_contacts bc WHERE bc.business_id = b.id)`
	case PriorityNoPhone:
		query += ` AND NOT EXISTS (
			SELECT 1 FROM business_contacts bc
			WHERE bc.business_id = b.id AND bc.contact_type = 'phone')`
	}

	query += ` ORDER BY (b.website_url IS NOT NULL), b.created_at LIMIT $2`

	rows, err := s.pool.Query(ctx, query, rawKey, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list enrichment candidates")
	}
	defer rows.Close()

	return scanBusinessesWithCity(rows)
}

// LatestWhoisCheck returns the newest classification pass for a domain,
// or nil when the domain has never been checked.
func (s *PostgresStore) LatestWhoisCheck(ctx context.Context, domainID uuid.UUID) (*model.WhoisCheck, error) {
	var (
		check   model.WhoisCheck
		rawData []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, domain_id, is_registered, is_parked, has_a, has_aaaa, has_cname,
			has_mx, has_http, http_status, COALESCE(registrar, ''), raw, checked_at
		FROM whois_checks
		WHERE domain_id = $1
		ORDER BY checked_at DESC
		LIMIT 1`, domainID).Scan(
		&check.ID, &check.DomainID, &check.IsRegistered, &check.IsParked, &check.HasA,
		&check.HasAAAA, &check.HasCNAME, &check.HasMX, &check.HasHTTP, &check.HTTPStatus,
		&check.Registrar, &rawData, &check.CheckedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest whois check")
	}
	if check.Raw, err = unmarshalJSON(rawData); err != nil {
		return nil, err
	}
	return &check, nil
}
