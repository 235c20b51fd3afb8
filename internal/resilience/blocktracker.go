package resilience

import "sync"

// BlockTracker counts consecutive blocked responses from a rate-limited
// upstream. Scrape-based verifiers stop their batch once the upstream has
// blocked several requests in a row, since pushing on only makes the block
// longer.
type BlockTracker struct {
	mu        sync.Mutex
	threshold int
	count     int
}

// NewBlockTracker returns a tracker that trips after threshold consecutive
// blocks. A threshold <= 0 defaults to 3.
func NewBlockTracker(threshold int) *BlockTracker {
	if threshold <= 0 {
		threshold = 3
	}
	return &BlockTracker{threshold: threshold}
}

// Blocked records one blocked response and reports whether the tracker has
// tripped.
func (t *BlockTracker) Blocked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	return t.count >= t.threshold
}

// Success resets the consecutive-block count.
func (t *BlockTracker) Success() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
}

// Tripped reports whether the threshold has been reached.
func (t *BlockTracker) Tripped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count >= t.threshold
}
