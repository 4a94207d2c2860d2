package typing

import (
	"context"
	"time"
)

// Janitor deletes stale typing indicators on an interval. It shares no
// state with the disappearing-message sweeper and can be skipped entirely
// without breaking reads.
type Janitor struct {
	store    I_TypingRepo
	interval time.Duration
}

func NewJanitor(store I_TypingRepo, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Janitor{store, interval}
}

func (me *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(me.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := me.store.SweepStale()
			if err != nil {
				Logger.Error(err, "typing sweep failed")
				continue
			}
			if removed > 0 {
				Logger.V(2).Info("typing sweep done", "removed", removed)
			}
		}
	}
}
