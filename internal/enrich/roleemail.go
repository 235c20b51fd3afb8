// Package enrich backfills contact details onto businesses and domains:
// synthesized role mailboxes for verified-unhosted domains, and phone
// numbers from the Places APIs for businesses missing contacts.
package enrich

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

const roleEmailJob = "enrich_role_emails"

// rolePrefixes are the mailboxes synthesized for a mail-enabled domain.
var rolePrefixes = []string{"info", "contact", "admin", "sales", "support"}

// roleSourceStatuses are the legacy verified-no-web statuses this pass
// consumes. The canonical classifier statuses are left alone so
// reclassification stays authoritative for them.
var roleSourceStatuses = []model.DomainStatus{
	model.StatusVerifiedUnhosted,
	model.StatusChecked,
}

// RoleEnricher synthesizes role mailboxes as contact rows for businesses
// linked to verified-unhosted, mail-enabled domains.
type RoleEnricher struct {
	store store.Store
}

// NewRoleEnricher builds a role-email enrichment pass.
func NewRoleEnricher(st store.Store) *RoleEnricher {
	return &RoleEnricher{store: st}
}

// RoleResult summarizes one role-email batch.
type RoleResult struct {
	Processed       int `json:"processed"`
	ContactsCreated int `json:"contacts_created"`
	NoMX            int `json:"no_mx"`
}

// RoleEmails lists the synthesized mailboxes for a domain.
func RoleEmails(domain string) []string {
	out := make([]string, 0, len(rolePrefixes))
	for _, prefix := range rolePrefixes {
		out = append(out, fmt.Sprintf("%s@%s", prefix, domain))
	}
	return out
}

// Run claims up to limit eligible domains and attaches role mailboxes to
// every linked business. Domains without MX move to mx_missing so the
// batch never reclaims them; enriched domains carry their terminal status.
func (e *RoleEnricher) Run(ctx context.Context, limit int) (*RoleResult, error) {
	run, err := e.store.StartJob(ctx, roleEmailJob, "")
	if err != nil {
		return nil, err
	}

	result, err := e.run(ctx, limit)
	if err != nil {
		if failErr := e.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{
		"contacts_created": result.ContactsCreated,
		"no_mx":            result.NoMX,
	}
	if err := e.store.CompleteJob(ctx, run, result.Processed, details); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *RoleEnricher) run(ctx context.Context, limit int) (*RoleResult, error) {
	domains, err := e.store.ClaimDomainsForCheck(ctx, roleSourceStatuses, limit)
	if err != nil {
		return nil, err
	}

	result := &RoleResult{}
	var touched []uuid.UUID

	for _, d := range domains {
		if ctx.Err() != nil {
			break
		}

		check, err := e.store.LatestWhoisCheck(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if check == nil || check.HasMX == nil || !*check.HasMX {
			if err := e.store.UpdateDomainStatus(ctx, d.ID, model.StatusMXMissing); err != nil {
				return nil, err
			}
			result.NoMX++
			result.Processed++
			continue
		}

		businessIDs, err := e.store.BusinessIDsLinkedToDomains(ctx, []uuid.UUID{d.ID})
		if err != nil {
			return nil, err
		}

		created := 0
		for _, bizID := range businessIDs {
			for _, email := range RoleEmails(d.Domain) {
				inserted, err := e.store.AddContact(ctx, &model.BusinessContact{
					BusinessID: bizID,
					Type:       model.ContactEmail,
					Value:      email,
					Source:     "role",
				})
				if err != nil {
					return nil, err
				}
				if inserted {
					created++
				}
			}
		}

		status := model.StatusNoContacts
		if created > 0 {
			status = model.StatusEnriched
			touched = append(touched, businessIDs...)
		}
		if err := e.store.UpdateDomainStatus(ctx, d.ID, status); err != nil {
			return nil, err
		}

		result.ContactsCreated += created
		result.Processed++
	}

	if err := e.store.ResetScoredAt(ctx, touched); err != nil {
		return nil, err
	}
	return result, nil
}
