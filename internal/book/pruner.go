package book

import (
	"sync"
	"time"

	"github.com/kairos-exchange/orderbook/internal/clock"
)

// dailyCutoffHour is the local hour at which resident GoodForDay orders are
// force-cancelled.
const dailyCutoffHour = 16

// wakeSlack is added to the computed wake time so the pruner does not spin
// if it wakes a hair before the cutoff tick.
const wakeSlack = 100 * time.Millisecond

// pruner is the single background worker that cancels every resident
// GoodForDay order at the next local cutoff hour (16:00 unless overridden
// with WithCutoffHour). It never holds the book's lock
// across its sleep: it wakes, collects ids under the lock, releases it, and
// only then calls CancelOrders (which re-acquires).
type pruner struct {
	book       *Book
	clock      clock.Clock
	location   *time.Location
	cutoffHour int

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func newPruner(b *Book, c clock.Clock, location *time.Location, cutoffHour int) *pruner {
	return &pruner{
		book:       b,
		clock:      c,
		location:   location,
		cutoffHour: cutoffHour,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

func (p *pruner) start() {
	go p.run()
}

// stop signals the worker to exit and joins it. Safe to call more than once.
func (p *pruner) stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.doneCh
}

func (p *pruner) run() {
	defer close(p.doneCh)
	for {
		wait := nextCutoffWaitAt(p.clock.Now(), p.location, p.cutoffHour)
		timer := time.NewTimer(wait)
		select {
		case <-p.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		ids := p.book.goodForDayIDs()
		if len(ids) > 0 {
			p.book.CancelOrders(ids)
		}
	}
}

// nextCutoffWait returns the duration until the next local 16:00 (the
// following day if now is already at or past 16:00), plus a small slack.
func nextCutoffWait(now time.Time, location *time.Location) time.Duration {
	return nextCutoffWaitAt(now, location, dailyCutoffHour)
}

// nextCutoffWaitAt is nextCutoffWait generalized to an arbitrary cutoff hour.
func nextCutoffWaitAt(now time.Time, location *time.Location, cutoffHour int) time.Duration {
	now = now.In(location)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, 0, 0, 0, location)
	if !now.Before(cutoff) {
		cutoff = cutoff.AddDate(0, 0, 1)
	}
	return cutoff.Sub(now) + wakeSlack
}
