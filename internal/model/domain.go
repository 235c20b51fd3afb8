package model

import (
	"time"

	"github.com/google/uuid"
)

// DomainStatus is the classifier's verdict for a domain.
type DomainStatus string

const (
	StatusNew                   DomainStatus = "new"
	StatusHosted                DomainStatus = "hosted"
	StatusParked                DomainStatus = "parked"
	StatusRegisteredNoWeb       DomainStatus = "registered_no_web"
	StatusRegisteredDNSOnly     DomainStatus = "registered_dns_only"
	StatusUnregisteredCandidate DomainStatus = "unregistered_candidate"
	StatusDNSError              DomainStatus = "dns_error"
	StatusRDAPError             DomainStatus = "rdap_error"

	// Legacy statuses written by earlier classifier versions. Readable
	// everywhere, never emitted by new classification runs.
	StatusVerifiedUnhosted DomainStatus = "verified_unhosted"
	StatusEnriched         DomainStatus = "enriched"
	StatusNoContacts       DomainStatus = "no_contacts"
	StatusChecked          DomainStatus = "checked"
	StatusMXMissing        DomainStatus = "mx_missing"
	StatusSkipped          DomainStatus = "skipped"
)

// StatusAliases maps legacy statuses to their canonical replacement.
var StatusAliases = map[DomainStatus]DomainStatus{
	StatusVerifiedUnhosted: StatusRegisteredNoWeb,
	StatusMXMissing:        StatusRegisteredDNSOnly,
	StatusChecked:          StatusRegisteredNoWeb,
}

// Domain is a normalized internet domain shared by many businesses.
type Domain struct {
	ID        uuid.UUID    `json:"id"`
	Domain    string       `json:"domain"`
	Status    DomainStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// WhoisCheck records one classification pass over a domain.
type WhoisCheck struct {
	ID           uuid.UUID      `json:"id"`
	DomainID     uuid.UUID      `json:"domain_id"`
	IsRegistered *bool          `json:"is_registered,omitempty"`
	IsParked     *bool          `json:"is_parked,omitempty"`
	HasA         *bool          `json:"has_a,omitempty"`
	HasAAAA      *bool          `json:"has_aaaa,omitempty"`
	HasCNAME     *bool          `json:"has_cname,omitempty"`
	HasMX        *bool          `json:"has_mx,omitempty"`
	HasHTTP      *bool          `json:"has_http,omitempty"`
	HTTPStatus   *int           `json:"http_status,omitempty"`
	Registrar    string         `json:"registrar,omitempty"`
	Raw          map[string]any `json:"raw,omitempty"`
	CheckedAt    time.Time      `json:"checked_at"`
}
