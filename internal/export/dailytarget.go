package export

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const dailyTargetJob = "daily_target_export"

// DailyTargetOptions parameterize the daily-target engine.
type DailyTargetOptions struct {
	Prefix               string
	Target               int
	MinScore             float64
	AllowRecycle         bool
	RequireContact       bool
	RequireUnhosted      bool
	RequireQualification bool
	ExcludeHostedDomains bool
}

// DailyTargetResult is the rolling summary for one day's platform.
type DailyTargetResult struct {
	Platform        string `json:"platform"`
	Target          int    `json:"target"`
	AlreadyExported int    `json:"already_exported"`
	FreshWritten    int    `json:"fresh_written"`
	RecycledWritten int    `json:"recycled_written"`
	Remaining       int    `json:"remaining"`
	Path            string `json:"path,omitempty"`
}

// ExportDailyTarget tops up today's per-day platform to the target count.
// The first pass takes never-exported businesses; if the target is still
// short and recycling is allowed, a second pass admits businesses already
// exported to other platforms. The per-platform unique constraint keeps
// reruns from double-counting.
func (e *Exporter) ExportDailyTarget(ctx context.Context, opts DailyTargetOptions) (*DailyTargetResult, error) {
	if opts.Prefix == "" {
		return nil, eris.New("export: daily platform prefix is required")
	}
	if opts.Target <= 0 {
		return nil, eris.New("export: daily target must be positive")
	}
	platform := PlatformForDay(opts.Prefix, time.Now())

	run, err := e.store.StartJob(ctx, dailyTargetJob, platform)
	if err != nil {
		return nil, err
	}

	result, err := e.exportDailyTarget(ctx, platform, opts)
	if err != nil {
		if failErr := e.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{
		"platform":         platform,
		"target":           opts.Target,
		"already_exported": result.AlreadyExported,
		"fresh_written":    result.FreshWritten,
		"recycled_written": result.RecycledWritten,
		"remaining":        result.Remaining,
	}
	written := result.FreshWritten + result.RecycledWritten
	if err := e.store.CompleteJob(ctx, run, written, details); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Exporter) exportDailyTarget(ctx context.Context, platform string, opts DailyTargetOptions) (*DailyTargetResult, error) {
	already, err := e.store.CountExportsForPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}

	result := &DailyTargetResult{
		Platform:        platform,
		Target:          opts.Target,
		AlreadyExported: already,
	}
	remaining := opts.Target - already
	if remaining <= 0 {
		zap.L().Info("daily target already met",
			zap.String("platform", platform),
			zap.Int("target", opts.Target),
			zap.Int("already_exported", already))
		return result, nil
	}

	base := Options{
		Platform:             platform,
		MinScore:             opts.MinScore,
		MaxWritten:           remaining,
		RequireContact:       opts.RequireContact,
		RequireUnhosted:      opts.RequireUnhosted,
		RequireQualification: opts.RequireQualification,
		ExcludeHostedDomains: opts.ExcludeHostedDomains,
	}

	fresh := base
	fresh.OnlyUnexported = true
	pass, err := e.export(ctx, fresh)
	if err != nil {
		return nil, err
	}
	result.FreshWritten = pass.Written
	result.Path = pass.Path
	remaining -= pass.Written

	if remaining > 0 && opts.AllowRecycle {
		recycled := base
		recycled.MaxWritten = remaining
		pass, err := e.export(ctx, recycled)
		if err != nil {
			return nil, err
		}
		result.RecycledWritten = pass.Written
		if pass.Path != "" {
			result.Path = pass.Path
		}
		remaining -= pass.Written
	}

	result.Remaining = max(remaining, 0)
	zap.L().Info("daily target pass finished",
		zap.String("platform", platform),
		zap.Int("fresh_written", result.FreshWritten),
		zap.Int("recycled_written", result.RecycledWritten),
		zap.Int("remaining", result.Remaining))
	return result, nil
}
