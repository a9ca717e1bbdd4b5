package book

import "fmt"

// LogicError signals a programmer error: misuse of Order in isolation that
// the matcher never triggers by construction (e.g. overfilling an order, or
// promoting a non-Market order). Rejections — duplicate ids, a FillAndKill
// that cannot cross, a FillOrKill with insufficient depth — are never
// reported this way; they are signalled by returning no trades.
type LogicError struct {
	OrderId OrderId
	Reason  string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("order (%d): %s", e.OrderId, e.Reason)
}

func newOverfillError(id OrderId, quantity, remaining Quantity) *LogicError {
	return &LogicError{
		OrderId: id,
		Reason: fmt.Sprintf(
			"cannot be filled with quantity (%d) greater than remaining quantity (%d)",
			quantity, remaining,
		),
	}
}

func newNotMarketOrderError(id OrderId) *LogicError {
	return &LogicError{
		OrderId: id,
		Reason:  "cannot have its price adjusted, only market orders can",
	}
}
