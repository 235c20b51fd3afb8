package scorer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

type fakeScoreStore struct {
	store.Store

	candidates []model.Business
	scores     map[uuid.UUID]float64
	reasons    map[uuid.UUID]map[string]any
}

func (f *fakeScoreStore) StartJob(ctx context.Context, jobName, scope string) (*model.JobRun, error) {
	return &model.JobRun{ID: uuid.New(), JobName: jobName}, nil
}

func (f *fakeScoreStore) CompleteJob(ctx context.Context, run *model.JobRun, processed int, details map[string]any) error {
	return nil
}

func (f *fakeScoreStore) FailJob(ctx context.Context, run *model.JobRun, jobErr string, details map[string]any) error {
	return nil
}

func (f *fakeScoreStore) ListScoreCandidates(ctx context.Context, limit int, forceRescore bool) ([]model.Business, error) {
	return f.candidates, nil
}

func (f *fakeScoreStore) ContactsForBusinesses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.BusinessContact, error) {
	return map[uuid.UUID][]model.BusinessContact{}, nil
}

func (f *fakeScoreStore) LinkedDomainsFor(ctx context.Context, ids []uuid.UUID) ([]store.LinkedDomain, error) {
	return nil, nil
}

func (f *fakeScoreStore) UpdateBusinessScore(ctx context.Context, id uuid.UUID, score float64, reasons map[string]any) error {
	if f.scores == nil {
		f.scores = map[uuid.UUID]float64{}
		f.reasons = map[uuid.UUID]map[string]any{}
	}
	f.scores[id] = score
	f.reasons[id] = reasons
	return nil
}

// A business scored while unverified keeps its old score until a verifier
// finds a website and clears scored_at; the next batch must zero it.
func TestRunBatchZeroesScoreAfterWebsiteFound(t *testing.T) {
	stale := 85.0
	biz := model.Business{
		ID:         uuid.New(),
		Source:     "osm",
		SourceID:   "node/1",
		Name:       "Acme Plumbing",
		WebsiteURL: "https://acmeplumbing.ca/",
		LeadScore:  &stale,
	}
	st := &fakeScoreStore{candidates: []model.Business{biz}}
	r := NewRunner(st, testChains(func(context.Context) (map[string]bool, error) {
		return map[string]bool{}, nil
	}))

	processed, err := r.RunBatch(context.Background(), 10, false)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	require.Contains(t, st.scores, biz.ID)
	assert.Zero(t, st.scores[biz.ID])
	assert.Equal(t, true, st.reasons[biz.ID]["disqualified"])
	assert.Equal(t, []string{"has_website"}, st.reasons[biz.ID]["disqualification_reasons"])
}

func TestRunBatchEmptyCandidates(t *testing.T) {
	st := &fakeScoreStore{}
	r := NewRunner(st, testChains(func(context.Context) (map[string]bool, error) {
		return map[string]bool{}, nil
	}))

	processed, err := r.RunBatch(context.Background(), 10, false)
	require.NoError(t, err)
	assert.Zero(t, processed)
}
