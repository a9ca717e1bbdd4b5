package scenario

import "github.com/kairos-exchange/orderbook/internal/book"

// Apply replays every action in s against b in order, ignoring the trades
// each Add/Modify produces — callers that care about fills should drive the
// book directly rather than through a scenario file.
func Apply(b *book.Book, s Scenario) {
	for _, action := range s.Actions {
		switch action.Type {
		case Add:
			if action.OrderType == book.Market {
				b.AddOrder(book.NewMarketOrder(action.OrderId, action.Side, action.Quantity))
			} else {
				b.AddOrder(book.NewOrder(action.OrderType, action.OrderId, action.Side, action.Price, action.Quantity))
			}
		case Modify:
			b.ModifyOrder(book.OrderModify{
				Id:       action.OrderId,
				Side:     action.Side,
				Price:    action.Price,
				Quantity: action.Quantity,
			})
		case Cancel:
			b.CancelOrder(action.OrderId)
		}
	}
}

// Matches reports whether b's current state satisfies s.Result.
func Matches(b *book.Book, s Scenario) bool {
	infos := b.GetOrderInfos()
	return b.Size() == s.Result.AllCount &&
		len(infos.Bids) == s.Result.BidCount &&
		len(infos.Asks) == s.Result.AskCount
}
