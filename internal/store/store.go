// Package store persists the cashier's state in an external key-value
// store.  The engine treats it as opaque: four logical records (device and
// queue state, the accumulated revenue, the two tier durations and the two
// tier prices) are each read once at startup and rewritten after every
// mutation.  Loading malformed or missing data always falls back to defaults
// so that startup can never fail on bad persisted state.
package store

import (
	"context"
	"time"

	"github.com/iliyamo/game-station-rental/internal/model"
)

// BookingRecord is the wire form of a booking.  End times travel as RFC3339
// strings and must be re-parsed into instants before any expiry comparison.
type BookingRecord struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	Game         string `json:"game"`
	DurationMin  int    `json:"duration_min"`
	Price        int    `json:"price"`
	EndTime      string `json:"end_time,omitempty"` // RFC3339; empty while queued
}

// DeviceRecord captures one device's active session and queue.
type DeviceRecord struct {
	Active *BookingRecord  `json:"active,omitempty"`
	Queue  []BookingRecord `json:"queue,omitempty"`
}

// Snapshot is the full persisted state of the engine.
type Snapshot struct {
	Devices map[string]DeviceRecord
	Revenue int
	Tiers   model.Tiers
}

// Store reads and writes snapshots.  Load never returns an error: corrupt or
// absent records are replaced with defaults record by record.  Save failures
// are reported so callers can log them, but the in-memory state remains
// authoritative either way.
type Store interface {
	Load(ctx context.Context) *Snapshot
	Save(ctx context.Context, snap *Snapshot) error
}

// NewBookingRecord converts a booking into its wire form.
func NewBookingRecord(b *model.Booking) BookingRecord {
	rec := BookingRecord{
		ID:           b.ID,
		CustomerName: b.CustomerName,
		Game:         b.Game,
		DurationMin:  b.DurationMin,
		Price:        b.Price,
	}
	if b.Active() {
		rec.EndTime = b.EndTime.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

// Booking converts the record back into a model booking, parsing the end
// time.  An unparseable end time is an error; the caller decides whether to
// drop the record or treat the booking as queued.
func (r BookingRecord) Booking() (*model.Booking, error) {
	b := &model.Booking{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Game:         r.Game,
		DurationMin:  r.DurationMin,
		Price:        r.Price,
	}
	if r.EndTime != "" {
		t, err := time.Parse(time.RFC3339Nano, r.EndTime)
		if err != nil {
			return nil, err
		}
		b.EndTime = t
	}
	return b, nil
}
