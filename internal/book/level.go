package book

import "container/list"

// level is the FIFO of live orders resting at one price on one side,
// preserving arrival order. A level is never stored with an empty list —
// the caller removes the level's map entry as soon as the last order leaves.
type level struct {
	orders *list.List // of *Order, oldest (head) first
}

func newLevel() *level {
	return &level{orders: list.New()}
}

func (l *level) pushBack(o *Order) *list.Element {
	return l.orders.PushBack(o)
}

func (l *level) front() (*Order, *list.Element) {
	elem := l.orders.Front()
	if elem == nil {
		return nil, nil
	}
	return elem.Value.(*Order), elem
}

func (l *level) remove(elem *list.Element) {
	l.orders.Remove(elem)
}

func (l *level) empty() bool { return l.orders.Len() == 0 }

func (l *level) len() int { return l.orders.Len() }

// totalRemaining sums RemainingQuantity across every order at this level.
func (l *level) totalRemaining() Quantity {
	var total Quantity
	for e := l.orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).RemainingQuantity()
	}
	return total
}

// orderEntry is what the book's order index stores per live order: the
// shared order handle, its side/price (to locate the owning level), and its
// position token within that level's FIFO — a *list.Element remains valid
// across insertions/removals elsewhere in the same list, giving O(1) cancel.
type orderEntry struct {
	order *Order
	side  Side
	price Price
	elem  *list.Element
}

// levelData is the aggregate (count, quantity) kept per price across both
// sides combined — see Book's "data" invariant. In a well-formed book bid
// and ask prices never overlap, so in practice this tracks one side.
type levelData struct {
	count    uint32
	quantity Quantity
}
