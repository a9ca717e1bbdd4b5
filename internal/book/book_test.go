package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBook(t *testing.T) *Book {
	b := NewBook()
	t.Cleanup(b.Close)
	return b
}

func TestAddOrder_GoodTillCancelCrossing(t *testing.T) {
	b := newTestBook(t)
	trades := b.AddOrder(NewOrder(GoodTillCancel, 1, Buy, 100, 10))
	assert.Empty(t, trades)

	trades = b.AddOrder(NewOrder(GoodTillCancel, 2, Sell, 100, 10))
	require.Len(t, trades, 1)
	assert.Equal(t, Quantity(10), trades[0].Bid.Quantity)
	assert.Equal(t, Quantity(10), trades[0].Ask.Quantity)
	assert.Equal(t, Price(100), trades[0].Bid.Price)

	infos := b.GetOrderInfos()
	assert.Empty(t, infos.Bids)
	assert.Empty(t, infos.Asks)
	assert.Equal(t, 0, b.Size())
}

func TestAddOrder_PartialFillResidueRests(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Buy, 100, 10))
	trades := b.AddOrder(NewOrder(GoodTillCancel, 2, Sell, 100, 4))

	require.Len(t, trades, 1)
	assert.Equal(t, Quantity(4), trades[0].Bid.Quantity)

	assert.Equal(t, 1, b.Size())
	infos := b.GetOrderInfos()
	require.Len(t, infos.Bids, 1)
	assert.Equal(t, Quantity(6), infos.Bids[0].Quantity)
	assert.Empty(t, infos.Asks)
}

func TestAddOrder_FillAndKillMissWhenNoCross(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Buy, 100, 10))
	trades := b.AddOrder(NewOrder(FillAndKill, 2, Sell, 101, 5))

	assert.Empty(t, trades)
	assert.Equal(t, 1, b.Size())
	infos := b.GetOrderInfos()
	assert.Len(t, infos.Bids, 1)
	assert.Empty(t, infos.Asks)
}

func TestAddOrder_FillOrKillHitsWithSufficientAggregateDepth(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Sell, 100, 3))
	b.AddOrder(NewOrder(GoodTillCancel, 2, Sell, 100, 4))

	trades := b.AddOrder(NewOrder(FillOrKill, 3, Buy, 100, 7))
	require.Len(t, trades, 2)

	var total Quantity
	for _, tr := range trades {
		total += tr.Bid.Quantity
	}
	assert.Equal(t, Quantity(7), total)
	assert.Equal(t, 0, b.Size())
}

func TestAddOrder_FillOrKillMissesWithInsufficientDepth(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Sell, 100, 3))
	b.AddOrder(NewOrder(GoodTillCancel, 2, Sell, 100, 4))

	trades := b.AddOrder(NewOrder(FillOrKill, 3, Buy, 100, 8))
	assert.Empty(t, trades)

	assert.Equal(t, 2, b.Size())
	infos := b.GetOrderInfos()
	assert.Empty(t, infos.Bids)
	assert.Len(t, infos.Asks, 1)
	assert.Equal(t, Quantity(7), infos.Asks[0].Quantity)
}

func TestAddOrder_MarketAgainstEmptyBookIsRejected(t *testing.T) {
	b := newTestBook(t)
	trades := b.AddOrder(NewMarketOrder(1, Buy, 5))
	assert.Empty(t, trades)
	assert.Equal(t, 0, b.Size())
}

func TestModifyOrder_LosesTimePriority(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Buy, 100, 1))
	b.AddOrder(NewOrder(GoodTillCancel, 2, Buy, 100, 1))

	// Re-queue id 1 behind id 2.
	b.ModifyOrder(OrderModify{Id: 1, Side: Buy, Price: 100, Quantity: 1})

	trades := b.AddOrder(NewOrder(GoodTillCancel, 3, Sell, 100, 1))
	require.Len(t, trades, 1)
	assert.Equal(t, OrderId(2), trades[0].Bid.OrderId)

	assert.Equal(t, 1, b.Size())
	infos := b.GetOrderInfos()
	require.Len(t, infos.Bids, 1)
	assert.Equal(t, Price(100), infos.Bids[0].Price)
}

func TestAddOrder_MarketPromotionUsesWorstOpposite(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Sell, 100, 1))
	b.AddOrder(NewOrder(GoodTillCancel, 2, Sell, 110, 1))

	trades := b.AddOrder(NewMarketOrder(3, Buy, 2))
	require.Len(t, trades, 2)
	assert.Equal(t, Price(100), trades[0].Ask.Price)
	assert.Equal(t, Price(110), trades[1].Ask.Price)
	assert.Equal(t, 0, b.Size())
}

func TestCancelOrder_AbsentIdIsNoOp(t *testing.T) {
	b := newTestBook(t)
	b.CancelOrder(999)
	assert.Equal(t, 0, b.Size())
}

func TestModifyOrder_AbsentIdIsNoOp(t *testing.T) {
	b := newTestBook(t)
	trades := b.ModifyOrder(OrderModify{Id: 999, Side: Buy, Price: 100, Quantity: 1})
	assert.Empty(t, trades)
}

func TestModifyOrder_MarketOrderIsRejected(t *testing.T) {
	b := newTestBook(t)
	// A Market order never rests, so there is no resident Market order to
	// modify; Modify of its id must be a no-op regardless.
	trades := b.ModifyOrder(OrderModify{Id: 42, Side: Buy, Price: 100, Quantity: 1})
	assert.Empty(t, trades)
}

func TestAddOrder_DuplicateIdIsNoOp(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Buy, 100, 10))
	trades := b.AddOrder(NewOrder(GoodTillCancel, 1, Buy, 200, 5))
	assert.Empty(t, trades)
	assert.Equal(t, 1, b.Size())

	infos := b.GetOrderInfos()
	require.Len(t, infos.Bids, 1)
	assert.Equal(t, Price(100), infos.Bids[0].Price)
}

func TestAddOrder_FillAndKillResidueIsSweptAfterPartialCross(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Sell, 100, 3))
	trades := b.AddOrder(NewOrder(FillAndKill, 2, Buy, 100, 10))

	require.Len(t, trades, 1)
	assert.Equal(t, Quantity(3), trades[0].Bid.Quantity)
	// Id 2 crossed and partially filled but cannot rest: it must not survive.
	assert.Equal(t, 0, b.Size())
	infos := b.GetOrderInfos()
	assert.Empty(t, infos.Bids)
	assert.Empty(t, infos.Asks)
}

func TestBookNeverCrossedAtRest(t *testing.T) {
	b := newTestBook(t)
	b.AddOrder(NewOrder(GoodTillCancel, 1, Buy, 99, 5))
	b.AddOrder(NewOrder(GoodTillCancel, 2, Sell, 101, 5))

	infos := b.GetOrderInfos()
	require.Len(t, infos.Bids, 1)
	require.Len(t, infos.Asks, 1)
	assert.Less(t, infos.Bids[0].Price, infos.Asks[0].Price)
}
