package registry

import "container/list"

// PaymentQueue is a per-tier FIFO of confirmed outpoints. It supports O(1)
// pop-front / push-back and O(1) arbitrary removal by pairing the primary
// list with a side index keyed by outpoint identity rather than position.
type PaymentQueue struct {
	order *list.List
	index map[Outpoint]*list.Element
}

// NewPaymentQueue returns an empty queue.
func NewPaymentQueue() *PaymentQueue {
	return &PaymentQueue{
		order: list.New(),
		index: make(map[Outpoint]*list.Element),
	}
}

// PushBack appends an outpoint to the tail. Used when a node is newly
// confirmed, or rotated after being paid.
func (q *PaymentQueue) PushBack(o Outpoint) {
	if _, ok := q.index[o]; ok {
		return
	}
	q.index[o] = q.order.PushBack(o)
}

// Head returns the outpoint at the front of the queue without mutating it.
func (q *PaymentQueue) Head() (Outpoint, bool) {
	front := q.order.Front()
	if front == nil {
		return Outpoint{}, false
	}
	return front.Value.(Outpoint), true
}

// Remove deletes an outpoint from the queue, wherever it sits. Used for
// expirations and undo.
func (q *PaymentQueue) Remove(o Outpoint) bool {
	el, ok := q.index[o]
	if !ok {
		return false
	}
	q.order.Remove(el)
	delete(q.index, o)
	return true
}

// RotateToBack moves o from wherever it sits to the tail, the mutation
// that happens when a node is paid (Apply passes the queue head). It
// returns false if o is not queued.
func (q *PaymentQueue) RotateToBack(o Outpoint) bool {
	if !q.Remove(o) {
		return false
	}
	q.index[o] = q.order.PushBack(o)
	return true
}

// InsertAt re-inserts an outpoint at the given zero-based position, used by
// undo to restore a confirmed record to the exact slot it held before being
// removed or paid.
func (q *PaymentQueue) InsertAt(o Outpoint, position int) {
	if position <= 0 || q.order.Len() == 0 {
		q.index[o] = q.order.PushFront(o)
		return
	}
	el := q.order.Front()
	for i := 0; i < position-1 && el.Next() != nil; i++ {
		el = el.Next()
	}
	q.index[o] = q.order.InsertAfter(o, el)
}

// Contains reports whether an outpoint is currently queued.
func (q *PaymentQueue) Contains(o Outpoint) bool {
	_, ok := q.index[o]
	return ok
}

// Position returns the zero-based index of an outpoint in the queue, used
// so an undo can later restore it to the same position.
func (q *PaymentQueue) Position(o Outpoint) int {
	el, ok := q.index[o]
	if !ok {
		return -1
	}
	pos := 0
	for e := q.order.Front(); e != nil; e = e.Next() {
		if e == el {
			return pos
		}
		pos++
	}
	return -1
}

// Len returns the number of queued outpoints.
func (q *PaymentQueue) Len() int {
	return q.order.Len()
}

// Slice returns the queue contents in order, head first. Used for snapshot
// persistence (store key 'M') and for byte-identical state comparison in
// property tests.
func (q *PaymentQueue) Slice() []Outpoint {
	out := make([]Outpoint, 0, q.order.Len())
	for e := q.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(Outpoint))
	}
	return out
}
