package book

// TradeInfo is the one-sided record of a single match increment.
type TradeInfo struct {
	OrderId  OrderId
	Price    Price
	Quantity Quantity
}

// Trade pairs the bid-side and ask-side TradeInfo of one match increment.
// Prices preserve each side's own resting price; they are not a midpoint.
type Trade struct {
	Bid TradeInfo
	Ask TradeInfo
}

// Trades is an ordered sequence of matches produced by a single AddOrder
// call, in match-loop order (best-opposite outward, head-of-FIFO first
// within a level).
type Trades []Trade
