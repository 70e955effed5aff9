package engine

import "github.com/iliyamo/game-station-rental/internal/model"

// queueManager maintains one FIFO of queued bookings per device.  Insertion
// order is arrival order; removing an element from the middle preserves the
// relative order of everything else.  Like the ledger it relies on the engine
// mutex for synchronisation.
type queueManager struct {
	queues map[string][]*model.Booking
}

func newQueueManager() *queueManager {
	return &queueManager{queues: make(map[string][]*model.Booking)}
}

// enqueue appends a booking to the tail of the device's queue.
func (q *queueManager) enqueue(deviceID string, b *model.Booking) {
	q.queues[deviceID] = append(q.queues[deviceID], b)
}

// peekHead returns the booking at the head of the device's queue without
// removing it, or nil when the queue is empty.
func (q *queueManager) peekHead(deviceID string) *model.Booking {
	if qs := q.queues[deviceID]; len(qs) > 0 {
		return qs[0]
	}
	return nil
}

// popHead removes and returns the head of the device's queue, or nil when
// the queue is empty.
func (q *queueManager) popHead(deviceID string) *model.Booking {
	qs := q.queues[deviceID]
	if len(qs) == 0 {
		return nil
	}
	head := qs[0]
	q.queues[deviceID] = qs[1:]
	return head
}

// removeByID deletes the queued booking with the given ID regardless of its
// position and reports whether anything was removed.
func (q *queueManager) removeByID(deviceID, bookingID string) bool {
	qs := q.queues[deviceID]
	for i, b := range qs {
		if b.ID == bookingID {
			q.queues[deviceID] = append(qs[:i:i], qs[i+1:]...)
			return true
		}
	}
	return false
}

// list returns the device's queue in order.  The returned slice is the
// internal one; callers copy before releasing the engine lock.
func (q *queueManager) list(deviceID string) []*model.Booking {
	return q.queues[deviceID]
}

// length returns the number of bookings waiting on the device.
func (q *queueManager) length(deviceID string) int {
	return len(q.queues[deviceID])
}

// replace installs a whole queue for a device, used when restoring
// persisted state.
func (q *queueManager) replace(deviceID string, bookings []*model.Booking) {
	q.queues[deviceID] = bookings
}
