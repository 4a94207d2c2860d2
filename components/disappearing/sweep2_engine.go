package disappearing

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

var Logger logr.Logger = logr.Discard()

// Redactor is the message collaborator. The sweeper only needs to make a
// message's content go away.
type Redactor interface {
	RedactMessage(messageUID string) error
}

// Sweeper drains due queue entries on an interval. Claim, redact, mark;
// a failure at any step just leaves the entry for the next cycle, nothing
// is reported to callers.
type Sweeper struct {
	queue    I_QueueRepo
	messages Redactor
	interval time.Duration
	batch    int
	now      func() time.Time
}

func NewSweeper(queue I_QueueRepo, messages Redactor, l logr.Logger, interval time.Duration, batch int) *Sweeper {
	Logger = l
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{queue: queue, messages: messages, interval: interval, batch: batch, now: time.Now}
}

func (me *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(me.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			me.SweepOnce()
		}
	}
}

// SweepOnce processes one batch of due entries. Safe to call from several
// workers at once and safe to re-run after a crash mid-batch.
func (me *Sweeper) SweepOnce() int {
	entries, err := me.queue.ClaimDueEntries(me.now(), me.batch)
	if err != nil {
		Logger.Error(err, "error claiming due entries")
	}

	processed := 0
	for _, entry := range entries {
		if err := me.messages.RedactMessage(entry.MessageUID); err != nil {
			Logger.Error(err, "error redacting message, will retry next cycle", "message", entry.MessageUID)
			continue
		}
		if err := me.queue.MarkProcessed(entry.MessageUID); err != nil {
			// the redact is idempotent, the next cycle finishes the job
			Logger.Error(err, "error marking entry processed", "message", entry.MessageUID)
			continue
		}
		processed++
	}

	if processed > 0 {
		Logger.V(1).Info("disappearing sweep done", "processed", processed)
	}

	return processed
}
