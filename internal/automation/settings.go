// Package automation runs the two long-lived control loops: the periodic
// pipeline cycle and the continuous verification cycle. A single run lock
// keeps scheduled cycles, run-now and daily-target-now mutually exclusive.
package automation

import (
	"strings"

	"github.com/sells-group/domain-lead-pipeline/internal/config"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// Settings is the full knob set for both loops. The controller hands each
// cycle an immutable snapshot so mid-cycle updates never tear a run.
type Settings struct {
	IntervalSecs int    `json:"interval_seconds"`
	Area         string `json:"area"`
	Categories   string `json:"categories"`

	SyncMaxBatches   int      `json:"sync_max_batches"`
	ClassifyLimit    int      `json:"classify_limit"`
	ClassifyStatuses []string `json:"classify_statuses"`
	EnrichLimit      int      `json:"enrich_limit"`

	ContactPlatform string  `json:"contact_platform"`
	ContactMinScore float64 `json:"contact_min_score"`

	BusinessScoreLimit           int     `json:"business_score_limit"`
	BusinessPlatform             string  `json:"business_platform"`
	BusinessMinScore             float64 `json:"business_min_score"`
	BusinessRequireContact       bool    `json:"business_require_contact"`
	BusinessRequireUnhosted      bool    `json:"business_require_unhosted_domain"`
	BusinessRequireQualification bool    `json:"business_require_domain_qualification"`

	VerifyBatchLimit     int     `json:"verify_batch_limit"`
	VerifyMinScore       float64 `json:"verify_min_score"`
	VerifyBatchPauseSecs int     `json:"verify_batch_pause_seconds"`
	VerifyIdlePauseSecs  int     `json:"verify_idle_pause_seconds"`

	DailyTargetEnabled              bool    `json:"daily_target_enabled"`
	DailyTargetCount                int     `json:"daily_target_count"`
	DailyTargetMinScore             float64 `json:"daily_target_min_score"`
	DailyTargetPlatformPrefix       string  `json:"daily_target_platform_prefix"`
	DailyTargetRequireContact       bool    `json:"daily_target_require_contact"`
	DailyTargetRequireUnhosted      bool    `json:"daily_target_require_unhosted_domain"`
	DailyTargetRequireQualification bool    `json:"daily_target_require_domain_qualification"`
	DailyTargetAllowRecycle         bool    `json:"daily_target_allow_recycle"`
}

// SettingsFromConfig derives the initial knob set from configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		IntervalSecs:     cfg.Pipeline.IntervalSecs,
		Categories:       "all",
		SyncMaxBatches:   1,
		ClassifyLimit:    25,
		ClassifyStatuses: defaultClassifyStatuses(),
		EnrichLimit:      25,

		ContactPlatform: "csv",

		BusinessScoreLimit:     500,
		BusinessPlatform:       "csv_business",
		BusinessMinScore:       40,
		BusinessRequireContact: true,

		VerifyBatchLimit:     cfg.Pipeline.VerifyBatchLimit,
		VerifyMinScore:       cfg.Pipeline.VerifyMinScore,
		VerifyBatchPauseSecs: cfg.Pipeline.VerifyBatchPause,
		VerifyIdlePauseSecs:  cfg.Pipeline.VerifyIdlePause,

		DailyTargetEnabled:              cfg.DailyTarget.Enabled,
		DailyTargetCount:                cfg.DailyTarget.Count,
		DailyTargetMinScore:             cfg.DailyTarget.MinScore,
		DailyTargetPlatformPrefix:       cfg.DailyTarget.PlatformPrefix,
		DailyTargetRequireContact:       cfg.DailyTarget.RequireContact,
		DailyTargetRequireUnhosted:      cfg.DailyTarget.RequireUnhosted,
		DailyTargetRequireQualification: cfg.DailyTarget.RequireQualification,
		DailyTargetAllowRecycle:         cfg.DailyTarget.AllowRecycle,
	}.normalized()
}

func defaultClassifyStatuses() []string {
	return []string{
		string(model.StatusNew),
		string(model.StatusSkipped),
		string(model.StatusRDAPError),
		string(model.StatusDNSError),
	}
}

// normalized clamps settings to safe ranges.
func (s Settings) normalized() Settings {
	if s.IntervalSecs < 30 {
		s.IntervalSecs = 30
	}
	if s.DailyTargetCount < 1 {
		s.DailyTargetCount = 1
	}
	if s.VerifyBatchLimit < 1 {
		s.VerifyBatchLimit = 1
	}
	if s.VerifyBatchPauseSecs < 1 {
		s.VerifyBatchPauseSecs = 1
	}
	if s.VerifyIdlePauseSecs < s.VerifyBatchPauseSecs {
		s.VerifyIdlePauseSecs = s.VerifyBatchPauseSecs
	}
	if s.DailyTargetPlatformPrefix == "" {
		s.DailyTargetPlatformPrefix = "daily"
	}
	return s
}

// ClassifyDomainStatuses parses the configured status names, dropping
// blanks.
func (s Settings) ClassifyDomainStatuses() []model.DomainStatus {
	var out []model.DomainStatus
	for _, raw := range s.ClassifyStatuses {
		if name := strings.TrimSpace(raw); name != "" {
			out = append(out, model.DomainStatus(name))
		}
	}
	return out
}

// SettingsPatch is a partial settings update; nil fields are unchanged.
type SettingsPatch struct {
	IntervalSecs *int    `json:"interval_seconds,omitempty"`
	Area         *string `json:"area,omitempty"`
	Categories   *string `json:"categories,omitempty"`

	SyncMaxBatches   *int     `json:"sync_max_batches,omitempty"`
	ClassifyLimit    *int     `json:"classify_limit,omitempty"`
	ClassifyStatuses []string `json:"classify_statuses,omitempty"`
	EnrichLimit      *int     `json:"enrich_limit,omitempty"`

	ContactPlatform *string  `json:"contact_platform,omitempty"`
	ContactMinScore *float64 `json:"contact_min_score,omitempty"`

	BusinessScoreLimit           *int     `json:"business_score_limit,omitempty"`
	BusinessPlatform             *string  `json:"business_platform,omitempty"`
	BusinessMinScore             *float64 `json:"business_min_score,omitempty"`
	BusinessRequireContact       *bool    `json:"business_require_contact,omitempty"`
	BusinessRequireUnhosted      *bool    `json:"business_require_unhosted_domain,omitempty"`
	BusinessRequireQualification *bool    `json:"business_require_domain_qualification,omitempty"`

	VerifyBatchLimit     *int     `json:"verify_batch_limit,omitempty"`
	VerifyMinScore       *float64 `json:"verify_min_score,omitempty"`
	VerifyBatchPauseSecs *int     `json:"verify_batch_pause_seconds,omitempty"`
	VerifyIdlePauseSecs  *int     `json:"verify_idle_pause_seconds,omitempty"`

	DailyTargetEnabled              *bool    `json:"daily_target_enabled,omitempty"`
	DailyTargetCount                *int     `json:"daily_target_count,omitempty"`
	DailyTargetMinScore             *float64 `json:"daily_target_min_score,omitempty"`
	DailyTargetPlatformPrefix       *string  `json:"daily_target_platform_prefix,omitempty"`
	DailyTargetRequireContact       *bool    `json:"daily_target_require_contact,omitempty"`
	DailyTargetRequireUnhosted      *bool    `json:"daily_target_require_unhosted_domain,omitempty"`
	DailyTargetRequireQualification *bool    `json:"daily_target_require_domain_qualification,omitempty"`
	DailyTargetAllowRecycle         *bool    `json:"daily_target_allow_recycle,omitempty"`
}

// applied overlays the patch onto s and re-normalizes.
func (p SettingsPatch) applied(s Settings) Settings {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setInt(&s.IntervalSecs, p.IntervalSecs)
	setStr(&s.Area, p.Area)
	setStr(&s.Categories, p.Categories)

	setInt(&s.SyncMaxBatches, p.SyncMaxBatches)
	setInt(&s.ClassifyLimit, p.ClassifyLimit)
	if p.ClassifyStatuses != nil {
		s.ClassifyStatuses = p.ClassifyStatuses
	}
	setInt(&s.EnrichLimit, p.EnrichLimit)

	setStr(&s.ContactPlatform, p.ContactPlatform)
	setFloat(&s.ContactMinScore, p.ContactMinScore)

	setInt(&s.BusinessScoreLimit, p.BusinessScoreLimit)
	setStr(&s.BusinessPlatform, p.BusinessPlatform)
	setFloat(&s.BusinessMinScore, p.BusinessMinScore)
	setBool(&s.BusinessRequireContact, p.BusinessRequireContact)
	setBool(&s.BusinessRequireUnhosted, p.BusinessRequireUnhosted)
	setBool(&s.BusinessRequireQualification, p.BusinessRequireQualification)

	setInt(&s.VerifyBatchLimit, p.VerifyBatchLimit)
	setFloat(&s.VerifyMinScore, p.VerifyMinScore)
	setInt(&s.VerifyBatchPauseSecs, p.VerifyBatchPauseSecs)
	setInt(&s.VerifyIdlePauseSecs, p.VerifyIdlePauseSecs)

	setBool(&s.DailyTargetEnabled, p.DailyTargetEnabled)
	setInt(&s.DailyTargetCount, p.DailyTargetCount)
	setFloat(&s.DailyTargetMinScore, p.DailyTargetMinScore)
	setStr(&s.DailyTargetPlatformPrefix, p.DailyTargetPlatformPrefix)
	setBool(&s.DailyTargetRequireContact, p.DailyTargetRequireContact)
	setBool(&s.DailyTargetRequireUnhosted, p.DailyTargetRequireUnhosted)
	setBool(&s.DailyTargetRequireQualification, p.DailyTargetRequireQualification)
	setBool(&s.DailyTargetAllowRecycle, p.DailyTargetAllowRecycle)

	return s.normalized()
}
