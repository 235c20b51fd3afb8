package verify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

// fakeStore implements just the Store methods the runner touches.
type fakeStore struct {
	store.Store

	candidates []store.BusinessWithCity
	patches    map[uuid.UUID]map[string]any
	websites   map[uuid.UUID]string
	completed  bool
	failed     bool
}

func newFakeStore(candidates ...store.BusinessWithCity) *fakeStore {
	return &fakeStore{
		candidates: candidates,
		patches:    map[uuid.UUID]map[string]any{},
		websites:   map[uuid.UUID]string{},
	}
}

func (f *fakeStore) StartJob(_ context.Context, name, scope string) (*model.JobRun, error) {
	return &model.JobRun{ID: uuid.New(), JobName: name, StartedAt: time.Now()}, nil
}

func (f *fakeStore) CompleteJob(_ context.Context, _ *model.JobRun, _ int, _ map[string]any) error {
	f.completed = true
	return nil
}

func (f *fakeStore) FailJob(_ context.Context, _ *model.JobRun, _ string, _ map[string]any) error {
	f.failed = true
	return nil
}

func (f *fakeStore) ListVerifierCandidates(_ context.Context, _ string, _ float64, _ int) ([]store.BusinessWithCity, error) {
	return f.candidates, nil
}

func (f *fakeStore) MergeBusinessRaw(_ context.Context, id uuid.UUID, patch map[string]any) error {
	merged := f.patches[id]
	if merged == nil {
		merged = map[string]any{}
		f.patches[id] = merged
	}
	for k, v := range patch {
		merged[k] = v
	}
	return nil
}

func (f *fakeStore) SetBusinessWebsite(_ context.Context, id uuid.UUID, websiteURL string) error {
	f.websites[id] = websiteURL
	return nil
}

// scriptedVerifier returns canned outcomes in order.
type scriptedVerifier struct {
	source   string
	outcomes []*Outcome
	errs     []error
	calls    int
}

func (s *scriptedVerifier) Source() string { return s.source }

func (s *scriptedVerifier) Verify(_ context.Context, _ Input) (*Outcome, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.outcomes[i], nil
}

func candidate(name string) store.BusinessWithCity {
	return store.BusinessWithCity{
		Business: model.Business{ID: uuid.New(), Name: name},
		CityName: "Guelph",
		Country:  "CA",
	}
}

func TestRunBatchAppliesVerdicts(t *testing.T) {
	c1, c2 := candidate("Acme Plumbing"), candidate("Beta Electric")
	st := newFakeStore(c1, c2)
	v := &scriptedVerifier{
		source: "searxng",
		outcomes: []*Outcome{
			{Verdict: VerdictHasWebsite, WebsiteURL: "https://acmeplumbing.ca/"},
			{Verdict: VerdictNoWebsite},
		},
	}

	result, err := NewRunner(st).RunBatch(context.Background(), v, 0, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.WebsitesFound)
	assert.False(t, result.Aborted)
	assert.True(t, st.completed)

	assert.Equal(t, "https://acmeplumbing.ca/", st.websites[c1.Business.ID])
	assert.Equal(t, true, st.patches[c1.Business.ID]["searxng_verified"])
	assert.Equal(t, "has_website", st.patches[c1.Business.ID]["searxng_result"])
	assert.Equal(t, "no_website", st.patches[c2.Business.ID]["searxng_result"])
	assert.Empty(t, st.websites[c2.Business.ID])
}

func TestRunBatchIsolatesVerifierErrors(t *testing.T) {
	c1, c2 := candidate("Acme Plumbing"), candidate("Beta Electric")
	st := newFakeStore(c1, c2)
	v := &scriptedVerifier{
		source:   "ddg",
		outcomes: []*Outcome{nil, {Verdict: VerdictNoWebsite}},
		errs:     []error{eris.New("connection reset"), nil},
	}

	result, err := NewRunner(st).RunBatch(context.Background(), v, 0, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, "error", st.patches[c1.Business.ID]["ddg_result"])
	assert.Equal(t, "no_website", st.patches[c2.Business.ID]["ddg_result"])
}

func TestRunBatchAbortsAfterBlockStreak(t *testing.T) {
	cands := []store.BusinessWithCity{
		candidate("A"), candidate("B"), candidate("C"),
		candidate("D"), candidate("E"),
	}
	st := newFakeStore(cands...)
	v := &scriptedVerifier{
		source: "google_search",
		outcomes: []*Outcome{
			{Verdict: VerdictBlocked},
			{Verdict: VerdictBlocked},
			{Verdict: VerdictBlocked},
		},
	}

	result, err := NewRunner(st).RunBatch(context.Background(), v, 0, 10)
	require.NoError(t, err)

	assert.True(t, result.Aborted)
	assert.Equal(t, 3, v.calls, "remaining candidates are stamped, not verified")
	// Every candidate carries a blocked stamp, including the unvisited tail.
	for _, c := range cands {
		assert.Equal(t, "blocked", st.patches[c.Business.ID]["google_search_result"], c.Business.Name)
	}
}

func TestRunBatchSuccessResetsBlockStreak(t *testing.T) {
	cands := []store.BusinessWithCity{
		candidate("A"), candidate("B"), candidate("C"),
		candidate("D"), candidate("E"),
	}
	st := newFakeStore(cands...)
	v := &scriptedVerifier{
		source: "google_search",
		outcomes: []*Outcome{
			{Verdict: VerdictBlocked},
			{Verdict: VerdictBlocked},
			{Verdict: VerdictNoWebsite},
			{Verdict: VerdictBlocked},
			{Verdict: VerdictBlocked},
		},
	}

	result, err := NewRunner(st).RunBatch(context.Background(), v, 0, 10)
	require.NoError(t, err)

	assert.False(t, result.Aborted)
	assert.Equal(t, 5, result.Processed)
}
