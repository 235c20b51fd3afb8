package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

const businessSelectCols = `id, source, source_id, COALESCE(name, ''), COALESCE(category, ''),
	COALESCE(website_url, ''), COALESCE(address, ''), lat, lon, lead_score, score_reasons,
	scored_at, raw, city_id, created_at`

// Same columns qualified for joined queries.
const businessSelectColsB = `b.id, b.source, b.source_id, COALESCE(b.name, ''), COALESCE(b.category, ''),
	COALESCE(b.website_url, ''), COALESCE(b.address, ''), b.lat, b.lon, b.lead_score, b.score_reasons,
	b.scored_at, b.raw, b.city_id, b.created_at`

func scanBusiness(row pgx.Row) (*model.Business, error) {
	var (
		b          model.Business
		reasonsRaw []byte
		rawRaw     []byte
	)
	err := row.Scan(&b.ID, &b.Source, &b.SourceID, &b.Name, &b.Category, &b.WebsiteURL,
		&b.Address, &b.Lat, &b.Lon, &b.LeadScore, &reasonsRaw, &b.ScoredAt, &rawRaw,
		&b.CityID, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if b.ScoreReasons, err = unmarshalJSON(reasonsRaw); err != nil {
		return nil, err
	}
	if b.Raw, err = unmarshalJSON(rawRaw); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) BusinessExists(ctx context.Context, source, sourceID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM businesses WHERE source = $1 AND source_id = $2)`,
		source, sourceID).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: business exists")
	}
	return exists, nil
}

// InsertBusiness inserts a business and its contacts in one transaction.
// An existing (source, source_id) row makes the whole call a no-op, so
// re-imports never duplicate or clobber verifier output.
func (s *PostgresStore) InsertBusiness(ctx context.Context, b *model.Business, contacts []model.BusinessContact) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	rawData, err := marshalJSON(b.Raw)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		var insertedID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO businesses (id, source, source_id, name, category, website_url, address, lat, lon, raw, city_id)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)
			ON CONFLICT ON CONSTRAINT businesses_source_uidx DO NOTHING
			RETURNING id`,
			b.ID, b.Source, b.SourceID, b.Name, b.Category, b.WebsiteURL, b.Address,
			b.Lat, b.Lon, rawData, b.CityID).Scan(&insertedID)
		if err != nil {
			if eris.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return eris.Wrap(err, "postgres: insert business")
		}

		for _, c := range contacts {
			id := c.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO business_contacts (id, business_id, contact_type, value, source)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''))
				ON CONFLICT ON CONSTRAINT business_contacts_unique_value_uidx DO NOTHING`,
				id, insertedID, c.Type, c.Value, c.Source)
			if err != nil {
				return eris.Wrap(err, "postgres: insert business contact")
			}
		}
		return nil
	})
}

// ListBusinessesAfter pages businesses in stable (created_at, id) order.
// A nil cursor starts from the beginning.
func (s *PostgresStore) ListBusinessesAfter(ctx context.Context, cursorTS *time.Time, cursorID *uuid.UUID, limit int) ([]model.Business, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + businessSelectCols + ` FROM businesses`
	args := []any{}
	if cursorTS != nil && cursorID != nil {
		query += ` WHERE (created_at, id) > ($1, $2)`
		args = append(args, *cursorTS, *cursorID)
	}
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses after cursor")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list businesses rows")
}

// ListVerifierCandidates returns scored no-website businesses the named
// verifier has not stamped yet, best-scored first.
func (s *PostgresStore) ListVerifierCandidates(ctx context.Context, source string, minScore float64, limit int) ([]BusinessWithCity, error) {
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+businessSelectColsB+`,
			COALESCE(c.name, ''), COALESCE(c.country, '')
		FROM businesses b
		LEFT JOIN cities c ON c.id = b.city_id
		WHERE (b.website_url IS NULL OR b.website_url = '')
			AND b.lead_score IS NOT NULL AND b.lead_score >= $1
			AND NOT (COALESCE(b.raw, '{}'::jsonb) ? $2)
		ORDER BY b.lead_score DESC, b.created_at
		LIMIT $3`,
		minScore, source+"_verified", limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list verifier candidates")
	}
	defer rows.Close()

	return scanBusinessesWithCity(rows)
}

// ListScoreCandidates returns businesses awaiting scoring. Rows with a
// website are included on purpose: a verifier that finds a website clears
// scored_at, and the scorer must then zero the stale lead score. With
// forceRescore set, already-scored rows are included too.
func (s *PostgresStore) ListScoreCandidates(ctx context.Context, limit int, forceRescore bool) ([]model.Business, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT ` + businessSelectCols + ` FROM businesses`
	if !forceRescore {
		query += ` WHERE scored_at IS NULL`
	}
	query += ` ORDER BY created_at, id LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list score candidates")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan score candidate")
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list score candidates rows")
}

func leadFilterWhere(f LeadFilter) (string, []any) {
	conds := []string{"(b.website_url IS NULL OR b.website_url = '')"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.MinScore != nil {
		conds = append(conds, "b.lead_score IS NOT NULL AND b.lead_score >= "+arg(*f.MinScore))
	}
	if f.Category != "" {
		conds = append(conds, "b.category = "+arg(f.Category))
	}
	if f.City != "" {
		conds = append(conds, "c.name ILIKE "+arg(f.City))
	}
	if f.Platform != "" {
		conds = append(conds, `NOT EXISTS (
			SELECT 1 FROM business_outreach_exports e
			WHERE e.business_id = b.id AND e.platform = `+arg(f.Platform)+`)`)
	}
	if f.OnlyUnexported {
		conds = append(conds, `NOT EXISTS (
			SELECT 1 FROM business_outreach_exports e
			WHERE e.business_id = b.id)`)
	}
	if f.RequireContact {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM business_contacts bc WHERE bc.business_id = b.id)`)
	}
	if f.RequireUnhosted || f.RequireQualification {
		statuses := []string{
			string(model.StatusVerifiedUnhosted),
			string(model.StatusChecked),
		}
		if f.RequireQualification {
			statuses = append(statuses, string(model.StatusUnregisteredCandidate))
		}
		conds = append(conds, `EXISTS (
			SELECT 1 FROM business_domain_links l
			JOIN domains d ON d.id = l.domain_id
			WHERE l.business_id = b.id AND d.status = ANY(`+arg(statuses)+`))`)
	}
	if f.ExcludeHostedDomains {
		// A web-presence domain disqualifies unless a qualified domain
		// also exists for the same business.
		presence := []string{
			string(model.StatusHosted),
			string(model.StatusParked),
			string(model.StatusRegisteredNoWeb),
			string(model.StatusRegisteredDNSOnly),
			string(model.StatusMXMissing),
			string(model.StatusEnriched),
		}
		qualified := []string{
			string(model.StatusVerifiedUnhosted),
			string(model.StatusChecked),
			string(model.StatusUnregisteredCandidate),
		}
		conds = append(conds, `NOT (EXISTS (
			SELECT 1 FROM business_domain_links l
			JOIN domains d ON d.id = l.domain_id
			WHERE l.business_id = b.id AND d.status = ANY(`+arg(presence)+`))
		AND NOT EXISTS (
			SELECT 1 FROM business_domain_links l
			JOIN domains d ON d.id = l.domain_id
			WHERE l.business_id = b.id AND d.status = ANY(`+arg(qualified)+`)))`)
	}

	return strings.Join(conds, " AND "), args
}

func (s *PostgresStore) ListLeads(ctx context.Context, f LeadFilter) ([]BusinessWithCity, error) {
	where, args := leadFilterWhere(f)

	query := `SELECT ` + businessSelectColsB + `,
		COALESCE(c.name, ''), COALESCE(c.country, '')
		FROM businesses b
		LEFT JOIN cities c ON c.id = b.city_id
		WHERE ` + where + `
		ORDER BY b.lead_score DESC NULLS LAST, b.created_at, b.id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	return scanBusinessesWithCity(rows)
}

func (s *PostgresStore) CountLeads(ctx context.Context, f LeadFilter) (int, error) {
	where, args := leadFilterWhere(f)

	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*)
		FROM businesses b
		LEFT JOIN cities c ON c.id = b.city_id
		WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count leads")
	}
	return count, nil
}

func (s *PostgresStore) SetBusinessWebsite(ctx context.Context, id uuid.UUID, websiteURL string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE businesses SET website_url = NULLIF($2, ''), scored_at = NULL WHERE id = $1`,
		id, websiteURL)
	return eris.Wrap(err, "postgres: set business website")
}

// MergeBusinessRaw shallow-merges patch into raw and clears scored_at so
// the scorer picks the business up again with the new evidence.
func (s *PostgresStore) MergeBusinessRaw(ctx context.Context, id uuid.UUID, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	patchData, err := marshalJSON(patch)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE businesses SET raw = COALESCE(raw, '{}'::jsonb) || $2::jsonb, scored_at = NULL WHERE id = $1`,
		id, patchData)
	return eris.Wrap(err, "postgres: merge business raw")
}

func (s *PostgresStore) UpdateBusinessScore(ctx context.Context, id uuid.UUID, score float64, reasons map[string]any) error {
	reasonsData, err := marshalJSON(reasons)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE businesses SET lead_score = $2, score_reasons = $3, scored_at = now() WHERE id = $1`,
		id, score, reasonsData)
	return eris.Wrap(err, "postgres: update business score")
}

func (s *PostgresStore) ResetScoredAt(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE businesses SET scored_at = NULL WHERE id = ANY($1)`, ids)
	return eris.Wrap(err, "postgres: reset scored_at")
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT category FROM businesses WHERE category IS NOT NULL AND category <> '' ORDER BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list categories")
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (s *PostgresStore) ListCityNames(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM cities ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list city names")
	}
	defer rows.Close()

	return scanStrings(rows)
}

// AddContact inserts a contact, reporting whether it was new.
func (s *PostgresStore) AddContact(ctx context.Context, c *model.BusinessContact) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO business_contacts (id, business_id, contact_type, value, source)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT ON CONSTRAINT business_contacts_unique_value_uidx DO NOTHING`,
		c.ID, c.BusinessID, c.Type, c.Value, c.Source)
	if err != nil {
		return false, eris.Wrap(err, "postgres: add contact")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ContactsForBusinesses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.BusinessContact, error) {
	out := make(map[uuid.UUID][]model.BusinessContact)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, business_id, contact_type, value, COALESCE(source, ''), created_at
		FROM business_contacts
		WHERE business_id = ANY($1)
		ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: contacts for businesses")
	}
	defer rows.Close()

	for rows.Next() {
		var c model.BusinessContact
		if err := rows.Scan(&c.ID, &c.BusinessID, &c.Type, &c.Value, &c.Source, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		out[c.BusinessID] = append(out[c.BusinessID], c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: contacts rows")
}

func (s *PostgresStore) GetOrCreateCity(ctx context.Context, name, country, region string) (*model.City, error) {
	var c model.City
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(country, ''), COALESCE(region, '')
		FROM cities
		WHERE name = $1 AND COALESCE(country, '') = $2`,
		name, country).Scan(&c.ID, &c.Name, &c.Country, &c.Region)
	if err == nil {
		return &c, nil
	}
	if !eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: get city")
	}

	// DO UPDATE instead of DO NOTHING so a lost insert race still returns
	// the winning row's id rather than a minted id that was never stored.
	c = model.City{Name: name, Country: country, Region: region}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO cities (id, name, country, region)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT ON CONSTRAINT cities_name_country_uidx
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		uuid.New(), c.Name, c.Country, c.Region).Scan(&c.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create city")
	}
	return &c, nil
}

func scanBusinessesWithCity(rows pgx.Rows) ([]BusinessWithCity, error) {
	var out []BusinessWithCity
	for rows.Next() {
		var (
			b          model.Business
			reasonsRaw []byte
			rawRaw     []byte
			cityName   string
			country    string
		)
		err := rows.Scan(&b.ID, &b.Source, &b.SourceID, &b.Name, &b.Category, &b.WebsiteURL,
			&b.Address, &b.Lat, &b.Lon, &b.LeadScore, &reasonsRaw, &b.ScoredAt, &rawRaw,
			&b.CityID, &b.CreatedAt, &cityName, &country)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan business with city")
		}
		if b.ScoreReasons, err = unmarshalJSON(reasonsRaw); err != nil {
			return nil, err
		}
		if b.Raw, err = unmarshalJSON(rawRaw); err != nil {
			return nil, err
		}
		out = append(out, BusinessWithCity{Business: b, CityName: cityName, Country: country})
	}
	return out, eris.Wrap(rows.Err(), "postgres: business rows")
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrap(err, "postgres: scan string")
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "postgres: string rows")
}
