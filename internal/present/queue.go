package present

import (
	"msgengine/internal/dbstore"
)

// Queue is the ordered set of messages eligible for display, unique by id.
// It is a projection of the store, never the system of record: dropping it
// and rebuilding from ReadPresentable is always legal.
//
// Not thread-safe by design. Every mutation must happen on the UI-affine
// dispatcher goroutine.
type Queue struct {
	items []*dbstore.Message
}

func NewQueue() *Queue {
	return &Queue{}
}

// Merge appends messages not already queued (preserving fetch order, which
// is updated_at ascending), then applies tickles in the order given: each
// matching id moves to the front, so later tickles end up frontmost. The
// return value reports whether the head changed and the visible message
// must be re-presented.
func (q *Queue) Merge(newMessages []*dbstore.Message, tickleIDs []uint64) (headChanged bool) {
	previousHead := q.headID()

	for _, m := range newMessages {
		if idx := q.indexOf(m.ID); idx >= 0 {
			// already queued: refresh the payload, keep the position
			q.items[idx] = m
			continue
		}
		q.items = append(q.items, m)
	}

	for _, id := range tickleIDs {
		idx := q.indexOf(id)
		if idx < 0 {
			// tickle for a message we do not hold, not an error
			continue
		}
		ticked := q.items[idx]
		q.items = append(q.items[:idx], q.items[idx+1:]...)
		q.items = append([]*dbstore.Message{ticked}, q.items...)
	}

	return q.headID() != previousHead
}

func (q *Queue) PeekHead() *dbstore.Message {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// PopHead removes the current head, called on open/close completion.
func (q *Queue) PopHead() *dbstore.Message {
	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head
}

// Clear empties the queue, used on account switch or explicit cancellation.
func (q *Queue) Clear() {
	q.items = nil
}

func (q *Queue) Len() int {
	return len(q.items)
}

// IDs returns the queued ids front to back.
func (q *Queue) IDs() []uint64 {
	ids := make([]uint64, len(q.items))
	for i, m := range q.items {
		ids[i] = m.ID
	}
	return ids
}

func (q *Queue) indexOf(id uint64) int {
	for i, m := range q.items {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// headID returns 0 for an empty queue; message ids are never 0.
func (q *Queue) headID() uint64 {
	if len(q.items) == 0 {
		return 0
	}
	return q.items[0].ID
}
