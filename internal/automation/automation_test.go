package automation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/export"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

type fakeCycleRunner struct {
	mu           sync.Mutex
	cycles       int
	targets      int
	verifyCycles int

	block   chan struct{} // when set, RunCycle parks until closed
	started chan struct{} // signalled once per RunCycle entry
}

func (f *fakeCycleRunner) RunCycle(ctx context.Context, s Settings) *CycleResult {
	f.mu.Lock()
	f.cycles++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return &CycleResult{Verified: map[string]int{}, Classified: 3}
}

func (f *fakeCycleRunner) RunDailyTarget(ctx context.Context, s Settings) (*export.DailyTargetResult, error) {
	f.mu.Lock()
	f.targets++
	f.mu.Unlock()
	return &export.DailyTargetResult{Platform: "daily-2026-08-26", FreshWritten: 5}, nil
}

func (f *fakeCycleRunner) RunVerificationCycle(ctx context.Context, s Settings) (int, error) {
	f.mu.Lock()
	f.verifyCycles++
	f.mu.Unlock()
	return 0, nil
}

func (f *fakeCycleRunner) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles, f.targets, f.verifyCycles
}

func testSettings() Settings {
	return Settings{
		IntervalSecs:     3600,
		SyncMaxBatches:   1,
		ClassifyLimit:    10,
		EnrichLimit:      10,
		VerifyBatchLimit: 10,
	}.normalized()
}

func TestSettingsNormalizedClamps(t *testing.T) {
	s := Settings{IntervalSecs: 5, DailyTargetCount: -1}.normalized()

	assert.Equal(t, 30, s.IntervalSecs)
	assert.Equal(t, 1, s.DailyTargetCount)
	assert.GreaterOrEqual(t, s.VerifyIdlePauseSecs, s.VerifyBatchPauseSecs)
}

func TestSettingsPatchPartialUpdate(t *testing.T) {
	base := testSettings()
	base.ContactPlatform = "csv"

	limit := 50
	area := "denver"
	patched := SettingsPatch{ClassifyLimit: &limit, Area: &area}.applied(base)

	assert.Equal(t, 50, patched.ClassifyLimit)
	assert.Equal(t, "denver", patched.Area)
	// untouched fields survive
	assert.Equal(t, "csv", patched.ContactPlatform)
	assert.Equal(t, base.IntervalSecs, patched.IntervalSecs)
}

func TestClassifyDomainStatusesParsesNames(t *testing.T) {
	s := testSettings()
	s.ClassifyStatuses = []string{"new", "rdap_error"}

	statuses := s.ClassifyDomainStatuses()
	assert.Equal(t, []model.DomainStatus{model.StatusNew, model.StatusRDAPError}, statuses)
}

func TestRunNowReturnsBusyWhileCycleInFlight(t *testing.T) {
	runner := &fakeCycleRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := NewController(runner, testSettings(), nil)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, err := c.RunNow(context.Background())
		assert.NoError(t, err)
	}()
	<-runner.started

	_, err := c.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(runner.block)
	<-firstDone

	result, err := c.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Classified)
}

func TestRunNowRecordsState(t *testing.T) {
	runner := &fakeCycleRunner{}
	c := NewController(runner, testSettings(), nil)

	_, err := c.RunNow(context.Background())
	require.NoError(t, err)

	st := c.Status()
	assert.Equal(t, 1, st.RunCount)
	assert.False(t, st.CycleInProgress)
	assert.NotNil(t, st.LastRunStarted)
	assert.NotNil(t, st.LastRunFinished)
	assert.Empty(t, st.LastError)
}

func TestDailyTargetRunsOncePerDay(t *testing.T) {
	runner := &fakeCycleRunner{}
	settings := testSettings()
	settings.DailyTargetEnabled = true
	settings.DailyTargetCount = 20
	c := NewController(runner, settings, nil)

	_, err := c.RunNow(context.Background())
	require.NoError(t, err)
	_, err = c.RunNow(context.Background())
	require.NoError(t, err)

	_, targets, _ := runner.counts()
	assert.Equal(t, 1, targets, "second cycle should skip the daily target")

	// explicit trigger ignores the once-per-day guard
	_, err = c.RunDailyTargetNow(context.Background())
	require.NoError(t, err)
	_, targets, _ = runner.counts()
	assert.Equal(t, 2, targets)
}

func TestStartStopPipelineLoop(t *testing.T) {
	runner := &fakeCycleRunner{started: make(chan struct{}, 4)}
	c := NewController(runner, testSettings(), nil)

	c.Start()
	assert.True(t, c.Status().Running)
	c.Start() // idempotent

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("loop never ran a cycle")
	}

	c.Stop()
	assert.False(t, c.Status().Running)
	c.Stop() // idempotent

	cycles, _, _ := runner.counts()
	assert.Equal(t, 1, cycles)
}

func TestVerificationLoopStartStop(t *testing.T) {
	runner := &fakeCycleRunner{}
	settings := testSettings()
	c := NewController(runner, settings, nil)

	c.StartVerification()
	assert.True(t, c.Status().VerificationRunning)

	deadline := time.After(2 * time.Second)
	for {
		if _, _, verify := runner.counts(); verify > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("verification loop never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}

	c.StopVerification()
	assert.False(t, c.Status().VerificationRunning)
}

func TestUpdateSettingsNormalizesPatch(t *testing.T) {
	c := NewController(&fakeCycleRunner{}, testSettings(), nil)

	interval := 5
	got := c.UpdateSettings(SettingsPatch{IntervalSecs: &interval})
	assert.Equal(t, 30, got.IntervalSecs)
	assert.Equal(t, 30, c.Settings().IntervalSecs)
}
