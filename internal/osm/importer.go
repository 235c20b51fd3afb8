package osm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/config"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
	"github.com/sells-group/domain-lead-pipeline/pkg/overpass"
)

const importJob = "osm_import"

// Importer pulls businesses for an area from Overpass and stores them with
// their extracted contacts. Reruns are idempotent on (source, source_id).
type Importer struct {
	store      store.Store
	client     overpass.Client
	cfg        config.OverpassConfig
	chunkPause time.Duration
}

// NewImporter builds an Overpass importer.
func NewImporter(st store.Store, client overpass.Client, cfg config.OverpassConfig) *Importer {
	return &Importer{
		store:      st,
		client:     client,
		cfg:        cfg,
		chunkPause: time.Second,
	}
}

// Run imports every element matching the category filters inside the area.
// Returns the number of newly inserted businesses.
func (i *Importer) Run(ctx context.Context, area Area, categories []Category) (int, error) {
	run, err := i.store.StartJob(ctx, importJob, area.Key)
	if err != nil {
		return 0, err
	}

	inserted, err := i.run(ctx, area, categories)
	if err != nil {
		if failErr := i.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return inserted, err
	}

	details := map[string]any{"area": area.Key}
	if err := i.store.CompleteJob(ctx, run, inserted, details); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func (i *Importer) run(ctx context.Context, area Area, categories []Category) (int, error) {
	var filters []Filter
	for _, cat := range categories {
		filters = append(filters, cat.Filters...)
	}

	boxes := []*BBox{nil}
	if area.BBox != nil && i.cfg.BBoxSplit > 1 {
		split := area.BBox.Split(i.cfg.BBoxSplit)
		boxes = boxes[:0]
		for idx := range split {
			boxes = append(boxes, &split[idx])
		}
	}

	city, err := i.store.GetOrCreateCity(ctx, area.Name, area.Country, area.Region)
	if err != nil {
		return 0, err
	}

	elementTypes := i.cfg.ElementTypes
	if len(elementTypes) == 0 {
		elementTypes = []string{"nwr"}
	}

	inserted := 0
	first := true
	for _, box := range boxes {
		for _, chunk := range ChunkFilters(filters, i.cfg.FilterChunk) {
			if !first {
				select {
				case <-ctx.Done():
					return inserted, ctx.Err()
				case <-time.After(i.chunkPause):
				}
			}
			first = false

			ql := BuildQuery(area, chunk, i.cfg.TimeoutSecs, elementTypes, box)
			resp, err := i.client.Query(ctx, ql)
			if err != nil {
				return inserted, err
			}

			n, err := i.storeElements(ctx, city, filters, resp.Elements)
			inserted += n
			if err != nil {
				return inserted, err
			}
		}
	}

	zap.L().Info("osm import finished",
		zap.String("area", area.Key),
		zap.Int("inserted", inserted))
	return inserted, nil
}

func (i *Importer) storeElements(ctx context.Context, city *model.City, filters []Filter, elements []overpass.Element) (int, error) {
	inserted := 0
	for _, element := range elements {
		sourceID := fmt.Sprintf("%s/%d", element.Type, element.ID)

		exists, err := i.store.BusinessExists(ctx, "osm", sourceID)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}

		business := &model.Business{
			Source:     "osm",
			SourceID:   sourceID,
			Name:       element.Tags["name"],
			Category:   elementCategory(filters, element.Tags),
			WebsiteURL: ExtractWebsite(element.Tags),
			Address:    ExtractAddress(element.Tags),
			Raw:        map[string]any{"tags": tagsToRaw(element.Tags)},
			CityID:     &city.ID,
		}
		if lat, lon, ok := element.Position(); ok {
			business.Lat = &lat
			business.Lon = &lon
		}

		if err := i.store.InsertBusiness(ctx, business, ExtractContacts(element.Tags)); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func elementCategory(filters []Filter, tags map[string]string) string {
	if category := MatchCategory(filters, tags); category != "" {
		return category
	}
	return ClassifyTags(tags)
}

func tagsToRaw(tags map[string]string) map[string]any {
	out := make(map[string]any, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
