package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/game-station-rental/internal/catalog"
	"github.com/iliyamo/game-station-rental/internal/events"
	"github.com/iliyamo/game-station-rental/internal/model"
	"github.com/iliyamo/game-station-rental/internal/store"
)

// Outcome reports how a booking request was resolved.
type Outcome string

const (
	OutcomeAssigned Outcome = "assigned" // booking is active on a device and was charged
	OutcomeQueued   Outcome = "queued"   // booking waits in a device's queue, not charged yet
)

// PromotionDecision is the operator's answer to a promotion-pending signal.
type PromotionDecision string

const (
	DecisionPromote PromotionDecision = "promote" // start the head of the queue
	DecisionDefer   PromotionDecision = "defer"   // dismiss the signal, leave the queue untouched
)

// AssignRequest is a booking request from the command surface.  DeviceID is
// optional; when empty the engine picks a device itself.
type AssignRequest struct {
	CustomerName string
	Game         string
	Tier         model.TierKey
	DeviceID     string
}

// AssignResult describes a successful Assign call.
type AssignResult struct {
	Outcome  Outcome
	DeviceID string
	Booking  model.Booking // copy of the created booking
}

// Engine owns all mutable rental state: device occupancy, per-device queues,
// the revenue ledger, the two duration tiers and the promotion-pending
// signals.  Every mutation, whether a command or a clock tick, runs under the
// mutex, so no two mutations ever interleave.  After each mutation the whole
// state is rewritten to the store; broker events are published after the
// lock is released so a slow broker cannot stall the engine.
type Engine struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	active  map[string]*model.Booking // device id -> active session, absent when idle
	queues  *queueManager
	ledger  *RevenueLedger
	tiers   model.Tiers
	pending map[string]bool // device id -> unconsumed promotion-pending signal
	clock   Clock
	store   store.Store
	publish events.PublishFunc
}

// New constructs an engine over the given catalog.  clock may be nil for the
// system clock; st may be nil to run memory-only; publish may be nil to
// disable broker events.  Tiers start at the defaults until Restore or
// UpdateTier replaces them.
func New(cat *catalog.Catalog, clock Clock, st store.Store, publish events.PublishFunc) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		catalog: cat,
		active:  make(map[string]*model.Booking),
		queues:  newQueueManager(),
		ledger:  &RevenueLedger{},
		tiers:   model.DefaultTiers(),
		pending: make(map[string]bool),
		clock:   clock,
		store:   st,
		publish: publish,
	}
}

// Restore applies a snapshot loaded from the store.  Records referring to
// devices missing from the catalog are dropped, as are bookings whose end
// time failed to parse; both are logged.  Restore must be called before the
// engine starts serving commands.
func (e *Engine) Restore(snap *store.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger.reset(snap.Revenue)
	e.tiers = snap.Tiers

	for devID, rec := range snap.Devices {
		if _, ok := e.catalog.Get(devID); !ok {
			log.Printf("engine: dropping persisted state for unknown device %q", devID)
			continue
		}
		if rec.Active != nil {
			b, err := rec.Active.Booking()
			switch {
			case err != nil:
				log.Printf("engine: dropping active booking on %q with bad end time: %v", devID, err)
			case !b.Active():
				log.Printf("engine: dropping active booking %s on %q without end time", b.ID, devID)
			default:
				e.active[devID] = b
			}
		}
		var queued []*model.Booking
		for _, qr := range rec.Queue {
			b, err := qr.Booking()
			if err != nil {
				log.Printf("engine: dropping queued booking on %q with bad end time: %v", devID, err)
				continue
			}
			b.EndTime = time.Time{} // queued bookings carry no end time
			queued = append(queued, b)
		}
		e.queues.replace(devID, queued)
	}
}

// Assign handles a booking request.  With an explicit device it either
// starts the session (device idle) or queues it (device busy).  Without one
// it scans the catalog in configured order for the first idle device that
// supports the game, falling back to queueing on the first supporting device
// when everything is busy.  Exactly one of {ledger credit, queue append}
// happens per successful call.
func (e *Engine) Assign(ctx context.Context, req AssignRequest) (AssignResult, error) {
	e.mu.Lock()
	res, evs, err := e.assignLocked(ctx, req)
	e.mu.Unlock()
	e.emit(ctx, evs)
	return res, err
}

func (e *Engine) assignLocked(ctx context.Context, req AssignRequest) (AssignResult, []events.SessionEvent, error) {
	name := strings.TrimSpace(req.CustomerName)
	game := strings.TrimSpace(req.Game)
	if name == "" {
		return AssignResult{}, nil, fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if game == "" {
		return AssignResult{}, nil, fmt.Errorf("%w: game is required", ErrValidation)
	}
	tier, ok := e.tiers.ByKey(req.Tier)
	if !ok {
		return AssignResult{}, nil, fmt.Errorf("%w: unknown tier %q", ErrValidation, req.Tier)
	}

	booking := &model.Booking{
		ID:           uuid.New().String(),
		CustomerName: name,
		Game:         game,
		DurationMin:  tier.Minutes,
		Price:        tier.Price,
	}

	var target *model.Device
	if req.DeviceID != "" {
		dev, ok := e.catalog.Get(req.DeviceID)
		if !ok {
			return AssignResult{}, nil, fmt.Errorf("%w: unknown device %q", ErrNotFound, req.DeviceID)
		}
		if !dev.Supports(game) {
			return AssignResult{}, nil, fmt.Errorf("%w: %s does not have %s", ErrUnsupportedGame, dev.Name, game)
		}
		target = dev
	} else {
		supporting := e.catalog.DevicesSupporting(game)
		if len(supporting) == 0 {
			return AssignResult{}, nil, fmt.Errorf("%w: %s", ErrNoDeviceSupportsGame, game)
		}
		for _, dev := range supporting {
			if e.active[dev.ID] == nil {
				target = dev
				break
			}
		}
		if target == nil {
			// Everything is busy; queue on the first supporting device.
			target = supporting[0]
		}
	}

	var evs []events.SessionEvent
	outcome := OutcomeQueued
	if e.active[target.ID] == nil {
		evs = append(evs, e.startBookingLocked(target, booking))
		outcome = OutcomeAssigned
	} else {
		e.queues.enqueue(target.ID, booking)
	}
	e.persistLocked(ctx)
	return AssignResult{Outcome: outcome, DeviceID: target.ID, Booking: *booking}, evs, nil
}

// startBookingLocked stamps the end time, installs the booking as the
// device's active session and credits the ledger.  The caller must hold the
// lock and must have verified the device is idle.
func (e *Engine) startBookingLocked(dev *model.Device, b *model.Booking) events.SessionEvent {
	now := e.clock.Now()
	b.EndTime = now.Add(time.Duration(b.DurationMin) * time.Minute)
	e.active[dev.ID] = b
	e.ledger.Credit(b.Price)
	return events.SessionEvent{
		Type:         events.TypeBookingConfirmed,
		DeviceID:     dev.ID,
		DeviceName:   dev.Name,
		BookingID:    b.ID,
		CustomerName: b.CustomerName,
		Game:         b.Game,
		DurationMin:  b.DurationMin,
		Price:        b.Price,
		EndTime:      b.EndTime.UTC().Format(time.RFC3339),
		QueueLength:  e.queues.length(dev.ID),
		OccurredAt:   now.UTC().Format(time.RFC3339),
	}
}

// Cancel removes the device's active booking, refunds its price (clamped so
// the total never goes negative) and, when customers are still waiting,
// raises a promotion-pending signal for the operator.  It never promotes on
// its own.
func (e *Engine) Cancel(ctx context.Context, deviceID, bookingID string) error {
	e.mu.Lock()
	evs, err := e.cancelLocked(ctx, deviceID, bookingID)
	e.mu.Unlock()
	e.emit(ctx, evs)
	return err
}

func (e *Engine) cancelLocked(ctx context.Context, deviceID, bookingID string) ([]events.SessionEvent, error) {
	b := e.active[deviceID]
	if b == nil || b.ID != bookingID {
		return nil, fmt.Errorf("%w: no active booking %s on device %s", ErrNotFound, bookingID, deviceID)
	}
	e.ledger.Debit(b.Price)
	delete(e.active, deviceID)

	var evs []events.SessionEvent
	if e.queues.length(deviceID) > 0 {
		if ev, raised := e.raisePendingLocked(deviceID); raised {
			evs = append(evs, ev)
		}
	}
	e.persistLocked(ctx)
	return evs, nil
}

// Promote starts the head of the device's queue as its active session.  It
// fails with ErrDeviceBusy when a session is already running (an active
// session is never overwritten) and with ErrEmptyQueue when nobody waits.
// Any unconsumed promotion-pending signal for the device is cleared.
func (e *Engine) Promote(ctx context.Context, deviceID string) (model.Booking, error) {
	e.mu.Lock()
	b, evs, err := e.promoteLocked(ctx, deviceID)
	e.mu.Unlock()
	e.emit(ctx, evs)
	return b, err
}

func (e *Engine) promoteLocked(ctx context.Context, deviceID string) (model.Booking, []events.SessionEvent, error) {
	dev, ok := e.catalog.Get(deviceID)
	if !ok {
		return model.Booking{}, nil, fmt.Errorf("%w: unknown device %q", ErrNotFound, deviceID)
	}
	if e.active[deviceID] != nil {
		return model.Booking{}, nil, fmt.Errorf("%w: %s already has an active session", ErrDeviceBusy, dev.Name)
	}
	head := e.queues.popHead(deviceID)
	if head == nil {
		return model.Booking{}, nil, fmt.Errorf("%w: nothing queued on %s", ErrEmptyQueue, dev.Name)
	}
	delete(e.pending, deviceID)
	ev := e.startBookingLocked(dev, head)
	e.persistLocked(ctx)
	return *head, []events.SessionEvent{ev}, nil
}

// DecidePromotion consumes the device's promotion-pending signal with the
// operator's decision.  Promote starts the queue head; Defer just dismisses
// the signal and leaves the queue untouched.  Without an unconsumed signal
// it fails with ErrNotFound.  The signal is consumed even when promoting
// fails afterwards: the operator has answered either way.
func (e *Engine) DecidePromotion(ctx context.Context, deviceID string, decision PromotionDecision) (*model.Booking, error) {
	e.mu.Lock()
	if !e.pending[deviceID] {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: no pending promotion for device %s", ErrNotFound, deviceID)
	}
	delete(e.pending, deviceID)
	if decision != DecisionPromote {
		e.mu.Unlock()
		return nil, nil
	}
	b, evs, err := e.promoteLocked(ctx, deviceID)
	e.mu.Unlock()
	e.emit(ctx, evs)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// RemoveFromQueue deletes a queued booking regardless of its position.  The
// remaining queue keeps its order and the ledger is untouched, since queued
// bookings have not been charged.  Removing an unknown booking is a no-op.
func (e *Engine) RemoveFromQueue(ctx context.Context, deviceID, bookingID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queues.removeByID(deviceID, bookingID) {
		e.persistLocked(ctx)
	}
	return nil
}

// UpdateTier replaces one of the two tiers.  Duration must be at least one
// minute and price non-negative.  Only future bookings see the new values;
// active and queued bookings keep what they were created with.
func (e *Engine) UpdateTier(ctx context.Context, key model.TierKey, minutes, price int) error {
	if !model.ValidTierKey(key) {
		return fmt.Errorf("%w: unknown tier %q", ErrValidation, key)
	}
	if minutes < 1 {
		return fmt.Errorf("%w: duration must be at least 1 minute", ErrValidation)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tiers.Set(key, model.Tier{Minutes: minutes, Price: price})
	e.persistLocked(ctx)
	return nil
}

// Tick expires every active booking whose end time has passed and raises a
// promotion-pending signal for each device left idle with a non-empty
// queue.  Raising is idempotent: a signal already pending and unconsumed is
// not raised again.  Tick is invoked by the expiry clock but is equally
// callable from tests with a simulated clock.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	evs := e.tickLocked(ctx)
	e.mu.Unlock()
	e.emit(ctx, evs)
}

func (e *Engine) tickLocked(ctx context.Context) []events.SessionEvent {
	now := e.clock.Now()
	var evs []events.SessionEvent
	changed := false
	for _, dev := range e.catalog.Devices() {
		b := e.active[dev.ID]
		if b == nil || b.EndTime.After(now) {
			continue
		}
		delete(e.active, dev.ID)
		changed = true
		if e.queues.length(dev.ID) > 0 {
			if ev, raised := e.raisePendingLocked(dev.ID); raised {
				evs = append(evs, ev)
			}
		}
	}
	if changed {
		e.persistLocked(ctx)
	}
	return evs
}

// raisePendingLocked marks the device as awaiting a promotion decision.  It
// returns false when a signal is already pending and unconsumed, so repeated
// ticks never produce duplicates.
func (e *Engine) raisePendingLocked(deviceID string) (events.SessionEvent, bool) {
	if e.pending[deviceID] {
		return events.SessionEvent{}, false
	}
	e.pending[deviceID] = true
	name := deviceID
	if dev, ok := e.catalog.Get(deviceID); ok {
		name = dev.Name
	}
	return events.SessionEvent{
		Type:        events.TypePromotionPending,
		DeviceID:    deviceID,
		DeviceName:  name,
		QueueLength: e.queues.length(deviceID),
		OccurredAt:  e.clock.Now().UTC().Format(time.RFC3339),
	}, true
}

// persistLocked snapshots the whole engine state into the store.  Failures
// are logged; the in-memory state stays authoritative.
func (e *Engine) persistLocked(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, e.snapshotLocked()); err != nil {
		log.Printf("engine: persist state failed: %v", err)
	}
}

func (e *Engine) snapshotLocked() *store.Snapshot {
	snap := &store.Snapshot{
		Devices: make(map[string]store.DeviceRecord, len(e.catalog.Devices())),
		Revenue: e.ledger.Total(),
		Tiers:   e.tiers,
	}
	for _, dev := range e.catalog.Devices() {
		var rec store.DeviceRecord
		if b := e.active[dev.ID]; b != nil {
			r := store.NewBookingRecord(b)
			rec.Active = &r
		}
		for _, qb := range e.queues.list(dev.ID) {
			rec.Queue = append(rec.Queue, store.NewBookingRecord(qb))
		}
		snap.Devices[dev.ID] = rec
	}
	return snap
}

// emit publishes events after the engine lock has been released.  Publish
// failures are logged inside the publisher and otherwise ignored; events are
// advisory, the engine state is the source of truth.
func (e *Engine) emit(ctx context.Context, evs []events.SessionEvent) {
	if e.publish == nil {
		return
	}
	for _, ev := range evs {
		_ = e.publish(ctx, ev)
	}
}
