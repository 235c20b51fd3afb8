package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// LeadFilter selects export/score candidates. Platform excludes rows
// already exported to that platform; OnlyUnexported excludes rows ever
// exported anywhere (the daily-target first pass).
type LeadFilter struct {
	MinScore             *float64
	Category             string
	City                 string
	Platform             string
	RequireContact       bool
	RequireUnhosted      bool
	RequireQualification bool
	ExcludeHostedDomains bool
	OnlyUnexported       bool
	Limit                int
	Offset               int
}

// BusinessWithCity pairs a business with its resolved city row.
type BusinessWithCity struct {
	Business model.Business
	CityName string
	Country  string
}

// LinkedDomain is a domain joined through a business link.
type LinkedDomain struct {
	BusinessID uuid.UUID
	DomainID   uuid.UUID
	Domain     string
	Status     model.DomainStatus
	Source     model.LinkSource
}

// JobFilter selects job runs for listing.
type JobFilter struct {
	JobName string
	Limit   int
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Businesses
	BusinessExists(ctx context.Context, source, sourceID string) (bool, error)
	InsertBusiness(ctx context.Context, b *model.Business, contacts []model.BusinessContact) error
	ListBusinessesAfter(ctx context.Context, cursorTS *time.Time, cursorID *uuid.UUID, limit int) ([]model.Business, error)
	ListVerifierCandidates(ctx context.Context, source string, minScore float64, limit int) ([]BusinessWithCity, error)
	ListScoreCandidates(ctx context.Context, limit int, forceRescore bool) ([]model.Business, error)
	ListLeads(ctx context.Context, f LeadFilter) ([]BusinessWithCity, error)
	CountLeads(ctx context.Context, f LeadFilter) (int, error)
	SetBusinessWebsite(ctx context.Context, id uuid.UUID, websiteURL string) error
	MergeBusinessRaw(ctx context.Context, id uuid.UUID, patch map[string]any) error
	UpdateBusinessScore(ctx context.Context, id uuid.UUID, score float64, reasons map[string]any) error
	ResetScoredAt(ctx context.Context, ids []uuid.UUID) error
	ListCategories(ctx context.Context) ([]string, error)
	ListCityNames(ctx context.Context, limit int) ([]string, error)
	ListEnrichmentCandidates(ctx context.Context, rawKey string, priority EnrichPriority, limit int) ([]BusinessWithCity, error)

	// Contacts
	AddContact(ctx context.Context, c *model.BusinessContact) (bool, error)
	ContactsForBusinesses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.BusinessContact, error)

	// Cities
	GetOrCreateCity(ctx context.Context, name, country, region string) (*model.City, error)

	// Domains
	UpsertDomains(ctx context.Context, domains []string) (int64, error)
	DomainIDs(ctx context.Context, domains []string) (map[string]uuid.UUID, error)
	InsertDomainLinks(ctx context.Context, links []model.BusinessDomainLink) (int64, error)
	LinkedDomainsFor(ctx context.Context, businessIDs []uuid.UUID) ([]LinkedDomain, error)
	ClaimDomainsForCheck(ctx context.Context, statuses []model.DomainStatus, limit int) ([]model.Domain, error)
	UpdateDomainStatus(ctx context.Context, id uuid.UUID, status model.DomainStatus) error
	InsertWhoisCheck(ctx context.Context, check *model.WhoisCheck) error
	LatestWhoisCheck(ctx context.Context, domainID uuid.UUID) (*model.WhoisCheck, error)
	BusinessIDsLinkedToDomains(ctx context.Context, domainIDs []uuid.UUID) ([]uuid.UUID, error)

	// Job ledger
	StartJob(ctx context.Context, jobName, scope string) (*model.JobRun, error)
	CompleteJob(ctx context.Context, run *model.JobRun, processed int, details map[string]any) error
	FailJob(ctx context.Context, run *model.JobRun, jobErr string, details map[string]any) error
	SetCheckpoint(ctx context.Context, jobName, scope, key, value string, details map[string]any, jobRunID *uuid.UUID) error
	GetCheckpoint(ctx context.Context, jobName, scope, key string) (string, error)
	ListJobRuns(ctx context.Context, f JobFilter) ([]model.JobRun, error)

	// Exports
	CountExportsForPlatform(ctx context.Context, platform string) (int, error)
	RecordExports(ctx context.Context, platform string, businessIDs []uuid.UUID) error
	ExportedBusinessIDs(ctx context.Context, platform string, businessIDs []uuid.UUID) (map[uuid.UUID]bool, error)

	// Metrics
	CollectMetrics(ctx context.Context) (*MetricsCounts, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
