package book

import (
	"testing"
	"time"

	"github.com/kairos-exchange/orderbook/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCutoffWait_BeforeCutoffSameDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, loc)
	wait := nextCutoffWait(now, loc)
	expected := time.Date(2026, 8, 6, 16, 0, 0, 0, loc).Sub(now) + wakeSlack
	assert.Equal(t, expected, wait)
}

func TestNextCutoffWait_AtOrAfterCutoffRollsToNextDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 6, 16, 0, 0, 0, loc)
	wait := nextCutoffWait(now, loc)
	expected := time.Date(2026, 8, 7, 16, 0, 0, 0, loc).Sub(now) + wakeSlack
	assert.Equal(t, expected, wait)
}

func TestPruner_SweepsGoodForDayOrdersAtCutoff(t *testing.T) {
	loc := time.UTC
	fake := clock.NewFake(time.Date(2026, 8, 6, 15, 59, 59, 900000000, loc))

	b := NewBook(WithClock(fake), WithLocation(loc))
	defer b.Close()

	b.AddOrder(NewOrder(GoodForDay, 1, Buy, 100, 5))
	b.AddOrder(NewOrder(GoodTillCancel, 2, Buy, 90, 5))
	require.Equal(t, 2, b.Size())

	// The pruner's wake timer was armed from the fake clock's reading at
	// Book construction (~100ms to cutoff, plus the wake slack); it fires
	// in real time regardless of further fake.Advance calls.
	require.Eventually(t, func() bool {
		return b.Size() == 1
	}, time.Second, 5*time.Millisecond)

	infos := b.GetOrderInfos()
	require.Len(t, infos.Bids, 1)
	assert.Equal(t, Price(90), infos.Bids[0].Price)
}

func TestNextCutoffWaitAt_HonorsOverride(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, loc)
	wait := nextCutoffWaitAt(now, loc, 12)
	expected := time.Date(2026, 8, 6, 12, 0, 0, 0, loc).Sub(now) + wakeSlack
	assert.Equal(t, expected, wait)
}

func TestPruner_CloseJoinsWorker(t *testing.T) {
	b := NewBook(WithClock(clock.NewFake(time.Now())))
	b.Close()
	b.Close() // idempotent
}
