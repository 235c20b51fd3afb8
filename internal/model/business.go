package model

import (
	"time"

	"github.com/google/uuid"
)

// ContactType distinguishes outreach-ready contact values.
type ContactType string

const (
	ContactEmail ContactType = "email"
	ContactPhone ContactType = "phone"
)

// LinkSource records how a business<->domain link was discovered.
type LinkSource string

const (
	LinkSourceWebsite  LinkSource = "website"
	LinkSourceEmail    LinkSource = "email"
	LinkSourceVerifier LinkSource = "verifier"
)

// ExportStatus tracks the lifecycle of an outreach export row.
type ExportStatus string

const (
	ExportQueued ExportStatus = "queued"
	ExportSent   ExportStatus = "sent"
	ExportFailed ExportStatus = "failed"
)

// City is an import area; businesses reference it for locality filters.
type City struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Country string    `json:"country,omitempty"`
	Region  string    `json:"region,omitempty"`
}

// Business is an imported business record. Raw carries the source tags plus
// every verifier's output keys (<source>_verified, <source>_result, extras).
type Business struct {
	ID           uuid.UUID      `json:"id"`
	Source       string         `json:"source"`
	SourceID     string         `json:"source_id"`
	Name         string         `json:"name,omitempty"`
	Category     string         `json:"category,omitempty"`
	WebsiteURL   string         `json:"website_url,omitempty"`
	Address      string         `json:"address,omitempty"`
	Lat          *float64       `json:"lat,omitempty"`
	Lon          *float64       `json:"lon,omitempty"`
	LeadScore    *float64       `json:"lead_score,omitempty"`
	ScoreReasons map[string]any `json:"score_reasons,omitempty"`
	ScoredAt     *time.Time     `json:"scored_at,omitempty"`
	Raw          map[string]any `json:"raw,omitempty"`
	CityID       *uuid.UUID     `json:"city_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// HasWebsite reports whether the business already has a known website.
func (b *Business) HasWebsite() bool {
	return b.WebsiteURL != ""
}

// VerifiedBy reports whether verifier source has already stamped this
// business. Verifiers use it (and its SQL equivalent) as their exclusion
// predicate so reruns never duplicate work.
func (b *Business) VerifiedBy(source string) bool {
	if b.Raw == nil {
		return false
	}
	_, ok := b.Raw[source+"_verified"]
	return ok
}

// BusinessContact is one phone/email value attached to a business.
type BusinessContact struct {
	ID         uuid.UUID   `json:"id"`
	BusinessID uuid.UUID   `json:"business_id"`
	Type       ContactType `json:"contact_type"`
	Value      string      `json:"value"`
	Source     string      `json:"source,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// BusinessDomainLink ties a business to a domain with provenance.
type BusinessDomainLink struct {
	ID         uuid.UUID  `json:"id"`
	BusinessID uuid.UUID  `json:"business_id"`
	DomainID   uuid.UUID  `json:"domain_id"`
	Source     LinkSource `json:"source"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BusinessOutreachExport records that a business was written to an export
// platform. The (business_id, platform) unique constraint is the
// idempotency anchor for the exporter.
type BusinessOutreachExport struct {
	ID         uuid.UUID      `json:"id"`
	BusinessID uuid.UUID      `json:"business_id"`
	Platform   string         `json:"platform"`
	Status     ExportStatus   `json:"status"`
	ExportedAt time.Time      `json:"exported_at"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// FeatureBundle is the uniform feature record the loader builds per
// business: contact values plus linked domains bucketed by status.
type FeatureBundle struct {
	Emails                  []string       `json:"emails"`
	BusinessEmails          []string       `json:"business_emails"`
	FreeEmails              []string       `json:"free_emails"`
	Phones                  []string       `json:"phones"`
	Domains                 []string       `json:"domains"`
	VerifiedUnhostedDomains []string       `json:"verified_unhosted_domains"`
	UnregisteredDomains     []string       `json:"unregistered_domains"`
	RegisteredDomains       []string       `json:"registered_domains"`
	UnknownDomains          []string       `json:"unknown_domains"`
	HostedDomains           []string       `json:"hosted_domains"`
	ParkedDomains           []string       `json:"parked_domains"`
	DomainStatusCounts      map[string]int `json:"domain_status_counts"`
}

// HasContact reports whether the bundle carries any outreach-ready value.
func (f *FeatureBundle) HasContact() bool {
	return len(f.Emails) > 0 || len(f.Phones) > 0
}

// HasQualifiedDomain reports whether any linked domain is outreach-qualified
// (verified unhosted or unregistered).
func (f *FeatureBundle) HasQualifiedDomain() bool {
	return len(f.VerifiedUnhostedDomains) > 0 || len(f.UnregisteredDomains) > 0
}
