package engine

import "github.com/iliyamo/game-station-rental/internal/model"

// BookingView is a read-only projection of an active booking for the board.
type BookingView struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	Game         string `json:"game"`
	DurationMin  int    `json:"duration_min"`
	Price        int    `json:"price"`
	Remaining    string `json:"remaining"` // "m:ss", floored at 0:00
}

// QueuedView is a read-only projection of a queued booking, including its
// position and the estimated wait in minutes.
type QueuedView struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	Game         string `json:"game"`
	DurationMin  int    `json:"duration_min"`
	Price        int    `json:"price"`
	Position     int    `json:"position"`
	WaitMinutes  int    `json:"wait_minutes"`
}

// DeviceView is one device's card on the operator board.
type DeviceView struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Games            []string     `json:"games"`
	Active           *BookingView `json:"active,omitempty"`
	Queue            []QueuedView `json:"queue,omitempty"`
	PromotionPending bool         `json:"promotion_pending"`
}

// Board returns every device in catalog order with its active session,
// queue and promotion state.  All values are copies; the caller holds no
// reference into engine state.
func (e *Engine) Board() []DeviceView {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	views := make([]DeviceView, 0, len(e.catalog.Devices()))
	for _, dev := range e.catalog.Devices() {
		view := DeviceView{
			ID:               dev.ID,
			Name:             dev.Name,
			Games:            dev.Games,
			PromotionPending: e.pending[dev.ID],
		}
		active := e.active[dev.ID]
		if active != nil {
			view.Active = &BookingView{
				ID:           active.ID,
				CustomerName: active.CustomerName,
				Game:         active.Game,
				DurationMin:  active.DurationMin,
				Price:        active.Price,
				Remaining:    active.RemainingLabel(now),
			}
		}
		queue := e.queues.list(dev.ID)
		for i, qb := range queue {
			view.Queue = append(view.Queue, QueuedView{
				ID:           qb.ID,
				CustomerName: qb.CustomerName,
				Game:         qb.Game,
				DurationMin:  qb.DurationMin,
				Price:        qb.Price,
				Position:     i + 1,
				WaitMinutes:  model.EstimatedWaitMinutes(active, queue, i, now),
			})
		}
		views = append(views, view)
	}
	return views
}

// Revenue returns the running revenue total.
func (e *Engine) Revenue() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Total()
}

// Tiers returns the current tier configuration.
func (e *Engine) Tiers() model.Tiers {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tiers
}

// PendingPromotions lists devices with an unconsumed promotion-pending
// signal, in catalog order.
func (e *Engine) PendingPromotions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, dev := range e.catalog.Devices() {
		if e.pending[dev.ID] {
			out = append(out, dev.ID)
		}
	}
	return out
}
