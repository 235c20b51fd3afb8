package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

func TestScoreContactRoleMailbox(t *testing.T) {
	business := &model.Business{Name: "Acme Plumbing", Category: "trades"}
	bundle := emptyBundle()
	bundle.Phones = []string{"+1 519 555 0101"}
	bundle.VerifiedUnhostedDomains = []string{"acmeplumbing.ca"}
	contact := &model.BusinessContact{
		Type:   model.ContactEmail,
		Value:  "info@acmeplumbing.ca",
		Source: "role",
	}

	// role source 10 + role prefix 10 + verified unhosted 20
	// + no website 25 + phone 20 + trades 25 = 110 → 100.
	score, reasons := ScoreContact(contact, business, bundle)
	assert.Equal(t, 100.0, score)
	assert.Equal(t, "info", reasons["role_prefix"])
}

func TestScoreContactHostedDomainZero(t *testing.T) {
	business := &model.Business{Name: "Acme Plumbing", Category: "trades"}
	bundle := emptyBundle()
	bundle.HostedDomains = []string{"acmeplumbing.ca"}
	contact := &model.BusinessContact{Type: model.ContactEmail, Value: "info@acmeplumbing.ca"}

	score, reasons := ScoreContact(contact, business, bundle)
	assert.Zero(t, score)
	assert.Equal(t, "hosted_or_parked_domain", reasons["disqualification_reason"])
}

func TestScoreContactPersonalMailbox(t *testing.T) {
	business := &model.Business{Name: "Corner Cafe", Category: "food"}
	bundle := emptyBundle()
	contact := &model.BusinessContact{Type: model.ContactEmail, Value: "jane@gmail.com", Source: "osm"}

	// no website 25 + food 10, nothing else.
	score, _ := ScoreContact(contact, business, bundle)
	assert.Equal(t, 35.0, score)
}
