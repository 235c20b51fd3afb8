package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/export"
	"github.com/sells-group/domain-lead-pipeline/pkg/ntfy"
)

const (
	pipelineStopWait     = 30 * time.Second
	verificationStopWait = 60 * time.Second
)

// Status is the controller state exposed over the API.
type Status struct {
	Running             bool       `json:"running"`
	VerificationRunning bool       `json:"verification_running"`
	CycleInProgress     bool       `json:"cycle_in_progress"`
	RunCount            int        `json:"run_count"`
	LastRunStarted      *time.Time `json:"last_run_started,omitempty"`
	LastRunFinished     *time.Time `json:"last_run_finished,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	NextRun             *time.Time `json:"next_run,omitempty"`
	Settings            Settings   `json:"settings"`
}

// Controller owns the scheduler loops and the single-flight run lock.
// Exactly one pipeline cycle runs at a time, whether triggered by the
// interval loop or an API run-now.
type Controller struct {
	runner   CycleRunner
	notifier ntfy.Client

	mu       sync.Mutex
	settings Settings

	runMu sync.Mutex // held for the duration of a cycle

	stateMu         sync.Mutex
	runCount        int
	lastRunStarted  *time.Time
	lastRunFinished *time.Time
	lastError       string
	nextRun         *time.Time
	cycleInProgress bool

	loopMu           sync.Mutex
	pipelineCancel   context.CancelFunc
	pipelineDone     chan struct{}
	verifyCancel     context.CancelFunc
	verifyDone       chan struct{}
	lastTargetedDate string
}

// NewController builds a controller around the given runner. notifier may
// be nil, in which case cycle notifications are skipped.
func NewController(runner CycleRunner, settings Settings, notifier ntfy.Client) *Controller {
	return &Controller{
		runner:   runner,
		settings: settings.normalized(),
		notifier: notifier,
	}
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings applies a partial patch and returns the new settings.
// Changes take effect on the next loop tick.
func (c *Controller) UpdateSettings(patch SettingsPatch) Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = patch.applied(c.settings).normalized()
	return c.settings
}

// Status reports the controller state.
func (c *Controller) Status() Status {
	c.loopMu.Lock()
	running := c.pipelineDone != nil
	verifying := c.verifyDone != nil
	c.loopMu.Unlock()

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return Status{
		Running:             running,
		VerificationRunning: verifying,
		CycleInProgress:     c.cycleInProgress,
		RunCount:            c.runCount,
		LastRunStarted:      c.lastRunStarted,
		LastRunFinished:     c.lastRunFinished,
		LastError:           c.lastError,
		NextRun:             c.nextRun,
		Settings:            c.Settings(),
	}
}

// ErrBusy is returned by RunNow when a cycle is already in flight.
var ErrBusy = fmt.Errorf("automation: a pipeline cycle is already running")

// RunNow runs one pipeline cycle immediately. Returns ErrBusy without
// blocking if another cycle holds the run lock.
func (c *Controller) RunNow(ctx context.Context) (*CycleResult, error) {
	if !c.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer c.runMu.Unlock()
	return c.runCycle(ctx), nil
}

// runCycle executes one cycle under the already-held run lock and
// records state. Daily target runs after the cycle, once per day.
func (c *Controller) runCycle(ctx context.Context) *CycleResult {
	settings := c.Settings()

	started := time.Now()
	c.stateMu.Lock()
	c.cycleInProgress = true
	c.lastRunStarted = &started
	c.stateMu.Unlock()

	result := c.runner.RunCycle(ctx, settings)

	if settings.DailyTargetEnabled && ctx.Err() == nil {
		c.maybeRunDailyTarget(ctx, settings, result)
	}

	finished := time.Now()
	c.stateMu.Lock()
	c.cycleInProgress = false
	c.lastRunFinished = &finished
	c.runCount++
	if len(result.Errors) > 0 {
		c.lastError = result.Errors[len(result.Errors)-1]
	} else {
		c.lastError = ""
	}
	c.stateMu.Unlock()

	c.notifyCycle(ctx, result, finished.Sub(started))
	return result
}

// maybeRunDailyTarget tops up today's export once per calendar day.
func (c *Controller) maybeRunDailyTarget(ctx context.Context, settings Settings, result *CycleResult) {
	today := time.Now().Format("2006-01-02")
	c.loopMu.Lock()
	already := c.lastTargetedDate == today
	c.loopMu.Unlock()
	if already {
		return
	}

	target, err := c.runner.RunDailyTarget(ctx, settings)
	if err != nil {
		result.fail("daily_target", err)
		return
	}
	c.loopMu.Lock()
	c.lastTargetedDate = today
	c.loopMu.Unlock()
	zap.L().Info("daily target pass complete",
		zap.String("platform", target.Platform),
		zap.Int("fresh", target.FreshWritten),
		zap.Int("recycled", target.RecycledWritten),
		zap.Int("remaining", target.Remaining))
}

// RunDailyTargetNow forces a daily target pass regardless of whether one
// already ran today.
func (c *Controller) RunDailyTargetNow(ctx context.Context) (*export.DailyTargetResult, error) {
	if !c.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer c.runMu.Unlock()

	target, err := c.runner.RunDailyTarget(ctx, c.Settings())
	if err != nil {
		return nil, err
	}
	c.loopMu.Lock()
	c.lastTargetedDate = time.Now().Format("2006-01-02")
	c.loopMu.Unlock()
	return target, nil
}

// Start launches the interval pipeline loop. No-op when already running.
func (c *Controller) Start() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.pipelineDone != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.pipelineCancel = cancel
	c.pipelineDone = done
	go c.pipelineLoop(ctx, done)
	zap.L().Info("automation loop started")
}

// Stop signals the pipeline loop and waits up to pipelineStopWait for the
// in-flight cycle to finish.
func (c *Controller) Stop() {
	c.loopMu.Lock()
	cancel, done := c.pipelineCancel, c.pipelineDone
	c.pipelineCancel, c.pipelineDone = nil, nil
	c.loopMu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	select {
	case <-done:
		zap.L().Info("automation loop stopped")
	case <-time.After(pipelineStopWait):
		zap.L().Warn("automation loop stop timed out; cycle still draining")
	}
}

func (c *Controller) pipelineLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		interval := time.Duration(c.Settings().IntervalSecs) * time.Second
		next := time.Now().Add(interval)
		c.stateMu.Lock()
		c.nextRun = &next
		c.stateMu.Unlock()

		if c.runMu.TryLock() {
			c.runCycle(ctx)
			c.runMu.Unlock()
		} else {
			zap.L().Debug("automation tick skipped; cycle already running")
		}

		select {
		case <-ctx.Done():
			c.stateMu.Lock()
			c.nextRun = nil
			c.stateMu.Unlock()
			return
		case <-time.After(time.Until(next)):
		}
	}
}

// StartVerification launches the continuous verification loop.
func (c *Controller) StartVerification() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.verifyDone != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.verifyCancel = cancel
	c.verifyDone = done
	go c.verificationLoop(ctx, done)
	zap.L().Info("verification loop started")
}

// StopVerification signals the verification loop and waits up to
// verificationStopWait for the current batch to finish.
func (c *Controller) StopVerification() {
	c.loopMu.Lock()
	cancel, done := c.verifyCancel, c.verifyDone
	c.verifyCancel, c.verifyDone = nil, nil
	c.loopMu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	select {
	case <-done:
		zap.L().Info("verification loop stopped")
	case <-time.After(verificationStopWait):
		zap.L().Warn("verification loop stop timed out; batch still draining")
	}
}

// verificationLoop drains verifier backlogs continuously: a short pause
// between productive batches, a long pause once the backlog is empty.
func (c *Controller) verificationLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		settings := c.Settings()
		processed, err := c.runner.RunVerificationCycle(ctx, settings)
		if err != nil {
			zap.L().Error("verification cycle failed", zap.Error(err))
		}

		pause := time.Duration(settings.VerifyBatchPauseSecs) * time.Second
		if processed == 0 {
			pause = time.Duration(settings.VerifyIdlePauseSecs) * time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

func (c *Controller) notifyCycle(ctx context.Context, result *CycleResult, took time.Duration) {
	if c.notifier == nil {
		return
	}

	msg := ntfy.Message{
		Title: "Pipeline cycle complete",
		Body: fmt.Sprintf("synced, classified %d, scored %d, exported %d in %s",
			result.Classified, result.Scored, result.BusinessesExported, took.Round(time.Second)),
		Tags: []string{"white_check_mark"},
	}
	if len(result.Errors) > 0 {
		msg.Title = "Pipeline cycle finished with errors"
		msg.Body = fmt.Sprintf("%d phase(s) failed; last: %s", len(result.Errors), result.Errors[len(result.Errors)-1])
		msg.Tags = []string{"warning"}
		msg.Priority = ntfy.PriorityHigh
	}

	// Best effort: a dead notification endpoint must not fail the cycle.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.notifier.Publish(nctx, msg); err != nil {
		zap.L().Warn("cycle notification failed", zap.Error(err))
	}
}
