package book

import (
	"sync"
	"time"

	"github.com/kairos-exchange/orderbook/internal/clock"
	"github.com/tidwall/btree"
)

// OrderModify is a request to replace an existing order's side/price/quantity
// while preserving its original OrderType. It has no well-defined semantics
// for a Market order (Market orders never rest) and is rejected as a no-op
// in that case.
type OrderModify struct {
	Id       OrderId
	Side     Side
	Price    Price
	Quantity Quantity
}

// Book is the matching engine for one instrument: two price-ordered side
// maps, the order index, and the aggregate level table, all guarded by a
// single mutex. Every public method acquires it for its full duration.
type Book struct {
	mu sync.Mutex

	bids *btree.Map[Price, *level] // all entries, descending traversal via Reverse gives best-first
	asks *btree.Map[Price, *level] // ascending traversal via Scan gives best-first

	orders map[OrderId]*orderEntry
	data   map[Price]*levelData

	pruner *pruner
}

// Option configures a Book at construction time.
type Option func(*bookConfig)

type bookConfig struct {
	clock      clock.Clock
	location   *time.Location
	cutoffHour int
}

// WithClock overrides the clock the daily pruner reads. Defaults to a real
// clock in the Book's location (see WithLocation; time.Local by default).
func WithClock(c clock.Clock) Option {
	return func(cfg *bookConfig) { cfg.clock = c }
}

// WithLocation overrides the timezone the daily cutoff is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(cfg *bookConfig) { cfg.location = loc }
}

// WithCutoffHour overrides the local hour (0-23) at which resident
// GoodForDay orders are force-cancelled. Defaults to 16.
func WithCutoffHour(hour int) Option {
	return func(cfg *bookConfig) { cfg.cutoffHour = hour }
}

// NewBook constructs an empty Book and starts its daily GoodForDay pruner.
// Close must be called to stop the pruner and release its goroutine.
func NewBook(opts ...Option) *Book {
	cfg := bookConfig{location: time.Local, cutoffHour: dailyCutoffHour}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.NewReal(cfg.location)
	}

	b := &Book{
		bids:   btree.NewMap[Price, *level](32),
		asks:   btree.NewMap[Price, *level](32),
		orders: make(map[OrderId]*orderEntry),
		data:   make(map[Price]*levelData),
	}
	b.pruner = newPruner(b, cfg.clock, cfg.location, cfg.cutoffHour)
	b.pruner.start()
	return b
}

// Close stops the daily pruner and joins its goroutine. Safe to call more
// than once.
func (b *Book) Close() {
	b.pruner.stop()
}

// AddOrder admits a new order: it either fully rejects (returning no trades,
// with no state change) or commits, possibly producing trades and possibly
// leaving a residual resting on the book.
func (b *Book) AddOrder(o *Order) Trades {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addOrderLocked(o)
}

func (b *Book) addOrderLocked(o *Order) Trades {
	if _, exists := b.orders[o.id]; exists {
		return nil
	}

	if o.orderType == Market {
		if o.side == Buy {
			worst, ok := b.worstAsk()
			if !ok {
				return nil
			}
			if err := o.PromoteToGoodTillCancel(worst); err != nil {
				return nil
			}
		} else {
			worst, ok := b.worstBid()
			if !ok {
				return nil
			}
			if err := o.PromoteToGoodTillCancel(worst); err != nil {
				return nil
			}
		}
	}

	if o.orderType == FillAndKill && !b.canMatch(o.side, o.price) {
		return nil
	}
	if o.orderType == FillOrKill && !b.canFullyFill(o.side, o.price, o.initialQuantity) {
		return nil
	}

	sideMap := b.sideMap(o.side)
	lvl, ok := sideMap.Get(o.price)
	if !ok {
		lvl = newLevel()
		sideMap.Set(o.price, lvl)
	}
	elem := lvl.pushBack(o)
	b.orders[o.id] = &orderEntry{order: o, side: o.side, price: o.price, elem: elem}
	b.onOrderAdded(o.price, o.initialQuantity)

	return b.matchOrders()
}

// matchOrders runs the price-time priority matching loop until the book is
// no longer crossed, then sweeps any surviving FillAndKill order resting at
// the top of either side (the only way one can still be resident: it
// crossed at admission but did not fully fill).
func (b *Book) matchOrders() Trades {
	var trades Trades
	for {
		bidPrice, bidLevel, haveBid := b.bestBid()
		askPrice, askLevel, haveAsk := b.bestAsk()
		if !haveBid || !haveAsk || bidPrice < askPrice {
			break
		}

		for !bidLevel.empty() && !askLevel.empty() {
			bidOrder, bidElem := bidLevel.front()
			askOrder, askElem := askLevel.front()

			quantity := bidOrder.RemainingQuantity()
			if askOrder.RemainingQuantity() < quantity {
				quantity = askOrder.RemainingQuantity()
			}

			_ = bidOrder.Fill(quantity)
			_ = askOrder.Fill(quantity)

			bidFilled := bidOrder.IsFilled()
			askFilled := askOrder.IsFilled()

			if bidFilled {
				bidLevel.remove(bidElem)
				delete(b.orders, bidOrder.id)
			}
			if askFilled {
				askLevel.remove(askElem)
				delete(b.orders, askOrder.id)
			}

			trades = append(trades, Trade{
				Bid: TradeInfo{OrderId: bidOrder.id, Price: bidOrder.price, Quantity: quantity},
				Ask: TradeInfo{OrderId: askOrder.id, Price: askOrder.price, Quantity: quantity},
			})

			b.onOrderMatched(bidOrder.price, quantity, bidFilled)
			b.onOrderMatched(askOrder.price, quantity, askFilled)
		}

		if bidLevel.empty() {
			b.bids.Delete(bidPrice)
		}
		if askLevel.empty() {
			b.asks.Delete(askPrice)
		}
	}

	if _, bidLevel, ok := b.bestBid(); ok {
		if head, _ := bidLevel.front(); head != nil && head.orderType == FillAndKill {
			b.cancelOrderLocked(head.id)
		}
	}
	if _, askLevel, ok := b.bestAsk(); ok {
		if head, _ := askLevel.front(); head != nil && head.orderType == FillAndKill {
			b.cancelOrderLocked(head.id)
		}
	}

	return trades
}

// CancelOrder removes a resident order by id. It is a no-op if the id is
// absent.
func (b *Book) CancelOrder(id OrderId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelOrderLocked(id)
}

// CancelOrders cancels every id in ids atomically under the book lock (not
// per-id atomic relative to other callers).
func (b *Book) CancelOrders(ids []OrderId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.cancelOrderLocked(id)
	}
}

func (b *Book) cancelOrderLocked(id OrderId) {
	entry, ok := b.orders[id]
	if !ok {
		return
	}
	delete(b.orders, id)

	sideMap := b.sideMap(entry.side)
	if lvl, ok := sideMap.Get(entry.price); ok {
		lvl.remove(entry.elem)
		if lvl.empty() {
			sideMap.Delete(entry.price)
		}
	}
	b.onOrderCancelled(entry.price, entry.order.RemainingQuantity())
}

// ModifyOrder cancels the existing order (if present) and re-inserts a new
// order carrying the requested side/price/quantity under the original
// OrderType, losing time priority. A no-op for an absent id or for a Market
// order (Market orders are promoted or rejected at admission and never
// rest, so modifying one has no defined meaning).
func (b *Book) ModifyOrder(m OrderModify) Trades {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.orders[m.Id]
	if !ok {
		return nil
	}
	orderType := entry.order.OrderType()
	if orderType == Market {
		return nil
	}

	b.cancelOrderLocked(m.Id)
	replacement := NewOrder(orderType, m.Id, m.Side, m.Price, m.Quantity)
	return b.addOrderLocked(replacement)
}

// Size returns the number of live orders resident in the book.
func (b *Book) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// Contains reports whether id is currently resident in the book.
func (b *Book) Contains(id OrderId) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.orders[id]
	return ok
}

// GetOrderInfos returns a value-copy snapshot of aggregated depth per side,
// bids high-to-low and asks low-to-high.
func (b *Book) GetOrderInfos() OrderBookLevelInfos {
	b.mu.Lock()
	defer b.mu.Unlock()

	var bids, asks LevelInfos
	b.bids.Reverse(func(price Price, lvl *level) bool {
		bids = append(bids, LevelInfo{Price: price, Quantity: lvl.totalRemaining()})
		return true
	})
	b.asks.Scan(func(price Price, lvl *level) bool {
		asks = append(asks, LevelInfo{Price: price, Quantity: lvl.totalRemaining()})
		return true
	})
	return OrderBookLevelInfos{Bids: bids, Asks: asks}
}

// goodForDayIDs collects the ids of every resident GoodForDay order. Called
// by the pruner with the book lock held for only the duration of the scan.
func (b *Book) goodForDayIDs() []OrderId {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]OrderId, 0, len(b.orders))
	for id, entry := range b.orders {
		if entry.order.OrderType() == GoodForDay {
			ids = append(ids, id)
		}
	}
	return ids
}

func (b *Book) sideMap(side Side) *btree.Map[Price, *level] {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// bestBid returns the highest resident bid price and its level.
func (b *Book) bestBid() (Price, *level, bool) {
	var price Price
	var lvl *level
	found := false
	b.bids.Reverse(func(p Price, l *level) bool {
		price, lvl, found = p, l, true
		return false
	})
	return price, lvl, found
}

// bestAsk returns the lowest resident ask price and its level.
func (b *Book) bestAsk() (Price, *level, bool) {
	var price Price
	var lvl *level
	found := false
	b.asks.Scan(func(p Price, l *level) bool {
		price, lvl, found = p, l, true
		return false
	})
	return price, lvl, found
}

// worstAsk returns the highest resident ask price — the price a Market buy
// is promoted to, guaranteeing it crosses every resident ask.
func (b *Book) worstAsk() (Price, bool) {
	var price Price
	found := false
	b.asks.Reverse(func(p Price, l *level) bool {
		price, found = p, true
		return false
	})
	return price, found
}

// worstBid returns the lowest resident bid price — the price a Market sell
// is promoted to, guaranteeing it crosses every resident bid.
func (b *Book) worstBid() (Price, bool) {
	var price Price
	found := false
	b.bids.Scan(func(p Price, l *level) bool {
		price, found = p, true
		return false
	})
	return price, found
}

// canMatch reports whether price crosses the opposite side's best price.
func (b *Book) canMatch(side Side, price Price) bool {
	if side == Buy {
		askPrice, _, ok := b.bestAsk()
		return ok && price >= askPrice
	}
	bidPrice, _, ok := b.bestBid()
	return ok && price <= bidPrice
}

// canFullyFill reports whether quantity can be matched in full immediately
// against the opposite side, using the aggregate level table rather than
// per-order iteration so the check costs O(levels), not O(orders).
func (b *Book) canFullyFill(side Side, price Price, quantity Quantity) bool {
	if quantity == 0 {
		return true
	}

	var accumulated Quantity
	full := false
	if side == Buy {
		b.asks.Scan(func(p Price, _ *level) bool {
			if p > price {
				return false
			}
			if d, ok := b.data[p]; ok {
				accumulated += d.quantity
			}
			if accumulated >= quantity {
				full = true
				return false
			}
			return true
		})
	} else {
		b.bids.Reverse(func(p Price, _ *level) bool {
			if p < price {
				return false
			}
			if d, ok := b.data[p]; ok {
				accumulated += d.quantity
			}
			if accumulated >= quantity {
				full = true
				return false
			}
			return true
		})
	}
	return full
}

func (b *Book) onOrderAdded(price Price, quantity Quantity) {
	d, ok := b.data[price]
	if !ok {
		d = &levelData{}
		b.data[price] = d
	}
	d.count++
	d.quantity += quantity
}

func (b *Book) onOrderMatched(price Price, quantity Quantity, wasFullyFilled bool) {
	d, ok := b.data[price]
	if !ok {
		return
	}
	d.quantity -= quantity
	if wasFullyFilled {
		d.count--
		if d.count == 0 {
			delete(b.data, price)
		}
	}
}

func (b *Book) onOrderCancelled(price Price, remaining Quantity) {
	d, ok := b.data[price]
	if !ok {
		return
	}
	d.quantity -= remaining
	d.count--
	if d.count == 0 {
		delete(b.data, price)
	}
}
