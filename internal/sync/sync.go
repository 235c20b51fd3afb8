// Package sync derives domains from business websites and email contacts
// and links them with provenance, resumable via a durable cursor.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/domainutil"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

const (
	jobName       = "business_domain_sync"
	checkpointKey = "cursor"
)

// Syncer walks businesses in (created_at, id) order and materializes
// domain rows plus business<->domain links.
type Syncer struct {
	store     store.Store
	batchSize int
}

// NewSyncer builds a syncer; batchSize defaults to 100.
func NewSyncer(st store.Store, batchSize int) *Syncer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Syncer{store: st, batchSize: batchSize}
}

// Result summarizes one sync run.
type Result struct {
	Businesses      int   `json:"businesses"`
	DomainsInserted int64 `json:"domains_inserted"`
	LinksInserted   int64 `json:"links_inserted"`
}

// Run processes up to maxBatches batches from the stored cursor
// (maxBatches <= 0 means run until caught up). The cursor advances after
// each batch, so a crash resumes at the last completed chunk.
func (s *Syncer) Run(ctx context.Context, maxBatches int) (*Result, error) {
	run, err := s.store.StartJob(ctx, jobName, "")
	if err != nil {
		return nil, err
	}

	result, err := s.run(ctx, run, maxBatches)
	if err != nil {
		if failErr := s.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{
		"domains_inserted": result.DomainsInserted,
		"links_inserted":   result.LinksInserted,
	}
	if err := s.store.CompleteJob(ctx, run, result.Businesses, details); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Syncer) run(ctx context.Context, run *model.JobRun, maxBatches int) (*Result, error) {
	cursorTS, cursorID, err := s.loadCursor(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for batch := 0; maxBatches <= 0 || batch < maxBatches; batch++ {
		if ctx.Err() != nil {
			return result, nil
		}

		businesses, err := s.store.ListBusinessesAfter(ctx, cursorTS, cursorID, s.batchSize)
		if err != nil {
			return nil, err
		}
		if len(businesses) == 0 {
			break
		}

		domains, links, err := s.syncBatch(ctx, businesses)
		if err != nil {
			return nil, err
		}
		result.Businesses += len(businesses)
		result.DomainsInserted += domains
		result.LinksInserted += links

		last := businesses[len(businesses)-1]
		ts := last.CreatedAt
		id := last.ID
		cursorTS, cursorID = &ts, &id

		cursor := fmt.Sprintf("%s|%s", ts.UTC().Format(time.RFC3339Nano), id)
		if err := s.store.SetCheckpoint(ctx, jobName, "", checkpointKey, cursor, nil, &run.ID); err != nil {
			return nil, err
		}

		if len(businesses) < s.batchSize {
			break
		}
	}
	return result, nil
}

// syncBatch collects candidate domains for one batch and upserts domains
// and links in bulk.
func (s *Syncer) syncBatch(ctx context.Context, businesses []model.Business) (int64, int64, error) {
	ids := make([]uuid.UUID, 0, len(businesses))
	for _, b := range businesses {
		ids = append(ids, b.ID)
	}
	contacts, err := s.store.ContactsForBusinesses(ctx, ids)
	if err != nil {
		return 0, 0, err
	}

	type candidate struct {
		businessID uuid.UUID
		source     model.LinkSource
	}
	byDomain := map[string][]candidate{}

	for _, b := range businesses {
		if b.WebsiteURL != "" {
			if d := domainutil.Normalize(b.WebsiteURL); d != "" {
				byDomain[d] = append(byDomain[d], candidate{b.ID, model.LinkSourceWebsite})
			}
		}
		for _, c := range contacts[b.ID] {
			if c.Type != model.ContactEmail {
				continue
			}
			d := domainutil.FromEmail(c.Value)
			if d == "" || domainutil.IsPublicEmailDomain(d) {
				continue
			}
			byDomain[d] = append(byDomain[d], candidate{b.ID, model.LinkSourceEmail})
		}
	}
	if len(byDomain) == 0 {
		return 0, 0, nil
	}

	domainList := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domainList = append(domainList, d)
	}

	domainsInserted, err := s.store.UpsertDomains(ctx, domainList)
	if err != nil {
		return 0, 0, err
	}

	domainIDs, err := s.store.DomainIDs(ctx, domainList)
	if err != nil {
		return 0, 0, err
	}

	var links []model.BusinessDomainLink
	seen := map[string]bool{}
	for d, cands := range byDomain {
		domainID, ok := domainIDs[d]
		if !ok {
			continue
		}
		for _, c := range cands {
			key := c.businessID.String() + "|" + domainID.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			links = append(links, model.BusinessDomainLink{
				BusinessID: c.businessID,
				DomainID:   domainID,
				Source:     c.source,
			})
		}
	}

	linksInserted, err := s.store.InsertDomainLinks(ctx, links)
	if err != nil {
		return 0, 0, err
	}
	return domainsInserted, linksInserted, nil
}

// loadCursor parses the stored "<rfc3339>|<uuid>" cursor. A malformed
// cursor restarts the walk from the beginning rather than failing the run.
func (s *Syncer) loadCursor(ctx context.Context) (*time.Time, *uuid.UUID, error) {
	value, err := s.store.GetCheckpoint(ctx, jobName, "", checkpointKey)
	if err != nil {
		return nil, nil, err
	}
	if value == "" {
		return nil, nil, nil
	}

	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		zap.L().Warn("malformed sync cursor, restarting from the beginning",
			zap.String("cursor", value))
		return nil, nil, nil
	}
	ts, tsErr := time.Parse(time.RFC3339Nano, parts[0])
	id, idErr := uuid.Parse(parts[1])
	if tsErr != nil || idErr != nil {
		zap.L().Warn("malformed sync cursor, restarting from the beginning",
			zap.String("cursor", value),
			zap.Error(eris.Wrap(tsErr, "timestamp")),
			zap.Error(eris.Wrap(idErr, "id")))
		return nil, nil, nil
	}
	return &ts, &id, nil
}
