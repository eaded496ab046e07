package watch

import (
	"context"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// DebouncerConfig controls how file events are grouped.
type DebouncerConfig struct {
	// QuietWindow is how long the source must stay silent before a batch is emitted.
	QuietWindow time.Duration
	// MaxDelay bounds how long a continuous stream can postpone a batch. Zero disables it.
	MaxDelay time.Duration
	// OnPending is called when the first event of a new batch arrives.
	OnPending func()
}

// Debouncer coalesces bursts of file events into batches.
//
// Events received within QuietWindow of each other end up in the same batch;
// MaxDelay caps the wait so a file saved in a tight loop still triggers builds.
type Debouncer struct {
	cfg DebouncerConfig
}

func NewDebouncer(cfg DebouncerConfig) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay < 0 {
		return nil, ferrors.ValidationError("max delay must be >= 0").Build()
	}
	return &Debouncer{cfg: cfg}, nil
}

// Run reads from in and writes coalesced batches to out until ctx is done or in
// is closed. A pending batch is flushed when in closes.
func (d *Debouncer) Run(ctx context.Context, in <-chan FileEvent, out chan<- []FileEvent) {
	quietTimer := stoppedTimer()
	maxTimer := stoppedTimer()
	var (
		quietC  <-chan time.Time
		maxC    <-chan time.Time
		pending []FileEvent
	)

	emit := func() bool {
		quietC, maxC = nil, nil
		if len(pending) == 0 {
			return true
		}
		batch := coalesce(pending)
		pending = nil
		select {
		case out <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				emit()
				return
			}
			if len(pending) == 0 {
				if d.cfg.OnPending != nil {
					d.cfg.OnPending()
				}
				if d.cfg.MaxDelay > 0 {
					resetTimer(maxTimer, d.cfg.MaxDelay)
					maxC = maxTimer.C
				}
			}
			pending = append(pending, ev)
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
		case <-quietC:
			if !emit() {
				return
			}
		case <-maxC:
			if !emit() {
				return
			}
		}
	}
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
