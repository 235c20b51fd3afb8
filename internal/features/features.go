// Package features builds uniform per-business feature bundles: contact
// values plus linked domains bucketed by classification status.
package features

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/sells-group/domain-lead-pipeline/internal/domainutil"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

// Loader computes feature bundles in bulk.
type Loader struct {
	store store.Store
}

// NewLoader builds a feature loader.
func NewLoader(st store.Store) *Loader {
	return &Loader{store: st}
}

// Load returns one bundle per requested business id. Businesses with no
// contacts or links still get an empty bundle.
func (l *Loader) Load(ctx context.Context, businessIDs []uuid.UUID) (map[uuid.UUID]*model.FeatureBundle, error) {
	out := make(map[uuid.UUID]*model.FeatureBundle, len(businessIDs))
	for _, id := range businessIDs {
		out[id] = &model.FeatureBundle{DomainStatusCounts: map[string]int{}}
	}
	if len(businessIDs) == 0 {
		return out, nil
	}

	contacts, err := l.store.ContactsForBusinesses(ctx, businessIDs)
	if err != nil {
		return nil, err
	}
	for id, cs := range contacts {
		bundle := out[id]
		if bundle == nil {
			continue
		}
		for _, c := range cs {
			switch c.Type {
			case model.ContactEmail:
				bundle.Emails = append(bundle.Emails, c.Value)
				if d := domainutil.FromEmail(c.Value); d != "" && !domainutil.IsPublicEmailDomain(d) {
					bundle.BusinessEmails = append(bundle.BusinessEmails, c.Value)
				} else {
					bundle.FreeEmails = append(bundle.FreeEmails, c.Value)
				}
			case model.ContactPhone:
				bundle.Phones = append(bundle.Phones, c.Value)
			}
		}
	}

	links, err := l.store.LinkedDomainsFor(ctx, businessIDs)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		bundle := out[link.BusinessID]
		if bundle == nil {
			continue
		}
		if domainutil.IsPublicEmailDomain(link.Domain) {
			continue
		}
		bundle.Domains = append(bundle.Domains, link.Domain)
		bundle.DomainStatusCounts[string(link.Status)]++
		bucketDomain(bundle, link.Domain, link.Status)
	}

	for _, bundle := range out {
		sortBundle(bundle)
	}
	return out, nil
}

// bucketDomain files a linked domain under the bucket its status implies.
// Legacy statuses keep their historical meaning here: verified_unhosted
// and checked are outreach-qualified, while the canonical registered
// statuses signal an existing web presence.
func bucketDomain(bundle *model.FeatureBundle, domain string, status model.DomainStatus) {
	switch status {
	case model.StatusVerifiedUnhosted, model.StatusChecked:
		bundle.VerifiedUnhostedDomains = append(bundle.VerifiedUnhostedDomains, domain)
	case model.StatusUnregisteredCandidate:
		bundle.UnregisteredDomains = append(bundle.UnregisteredDomains, domain)
	case model.StatusHosted, model.StatusEnriched:
		bundle.HostedDomains = append(bundle.HostedDomains, domain)
	case model.StatusParked:
		bundle.ParkedDomains = append(bundle.ParkedDomains, domain)
	case model.StatusRegisteredNoWeb, model.StatusRegisteredDNSOnly, model.StatusMXMissing:
		bundle.RegisteredDomains = append(bundle.RegisteredDomains, domain)
	default:
		bundle.UnknownDomains = append(bundle.UnknownDomains, domain)
	}
}

func sortBundle(b *model.FeatureBundle) {
	for _, list := range [][]string{
		b.Emails, b.BusinessEmails, b.FreeEmails, b.Phones,
		b.Domains, b.VerifiedUnhostedDomains, b.UnregisteredDomains,
		b.RegisteredDomains, b.UnknownDomains, b.HostedDomains, b.ParkedDomains,
	} {
		sort.Strings(list)
	}
}
