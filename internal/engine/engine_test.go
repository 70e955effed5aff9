package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/game-station-rental/internal/catalog"
	"github.com/iliyamo/game-station-rental/internal/model"
	"github.com/iliyamo/game-station-rental/internal/store"
)

// fakeClock is a Clock whose time only moves when the test advances it.
type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// testCatalog is a small two-station inventory: both stations run Fortnite,
// only Alpha runs Rocket League.
func testCatalog() *catalog.Catalog {
	return catalog.New([]model.Device{
		{ID: "alpha", Name: "Alpha", Games: []string{"Fortnite", "Rocket League"}},
		{ID: "beta", Name: "Beta", Games: []string{"Fortnite"}},
	})
}

func newTestEngine() (*Engine, *fakeClock) {
	clk := newFakeClock()
	return New(testCatalog(), clk, nil, nil), clk
}

func mustAssign(t *testing.T, e *Engine, req AssignRequest) AssignResult {
	t.Helper()
	res, err := e.Assign(context.Background(), req)
	if err != nil {
		t.Fatalf("Assign(%+v) failed: %v", req, err)
	}
	return res
}

func TestAssignIdleDeviceStartsSession(t *testing.T) {
	e, clk := newTestEngine()

	res := mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	if res.Outcome != OutcomeAssigned {
		t.Fatalf("outcome = %q, want assigned", res.Outcome)
	}
	if res.DeviceID != "alpha" {
		t.Fatalf("device = %q, want alpha", res.DeviceID)
	}
	if got, want := e.Revenue(), 80; got != want {
		t.Errorf("revenue = %d, want %d", got, want)
	}
	wantEnd := clk.Now().Add(5 * time.Minute)
	if !res.Booking.EndTime.Equal(wantEnd) {
		t.Errorf("end time = %v, want %v", res.Booking.EndTime, wantEnd)
	}
}

func TestAssignBusyDeviceQueues(t *testing.T) {
	e, _ := newTestEngine()
	mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})

	res := mustAssign(t, e, AssignRequest{CustomerName: "B", Game: "Fortnite", Tier: model.TierSecond, DeviceID: "alpha"})
	if res.Outcome != OutcomeQueued {
		t.Fatalf("outcome = %q, want queued", res.Outcome)
	}
	if res.Booking.Active() {
		t.Errorf("queued booking should not carry an end time")
	}
	// Queueing never charges.
	if got, want := e.Revenue(), 80; got != want {
		t.Errorf("revenue = %d, want %d", got, want)
	}
	board := e.Board()
	if got := len(board[0].Queue); got != 1 {
		t.Errorf("alpha queue length = %d, want 1", got)
	}
}

func TestAutoAssignPicksFirstIdleInCatalogOrder(t *testing.T) {
	e, _ := newTestEngine()

	first := mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst})
	if first.DeviceID != "alpha" {
		t.Fatalf("first booking landed on %q, want alpha (catalog order)", first.DeviceID)
	}
	second := mustAssign(t, e, AssignRequest{CustomerName: "B", Game: "Fortnite", Tier: model.TierFirst})
	if second.DeviceID != "beta" || second.Outcome != OutcomeAssigned {
		t.Fatalf("second booking = %q/%q, want assigned on beta", second.Outcome, second.DeviceID)
	}
	// Everything busy: queue on the first supporting device.
	third := mustAssign(t, e, AssignRequest{CustomerName: "C", Game: "Fortnite", Tier: model.TierFirst})
	if third.DeviceID != "alpha" || third.Outcome != OutcomeQueued {
		t.Fatalf("third booking = %q/%q, want queued on alpha", third.Outcome, third.DeviceID)
	}
}

func TestAssignRejections(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	cases := []struct {
		name string
		req  AssignRequest
		want error
	}{
		{"empty customer", AssignRequest{Game: "Fortnite", Tier: model.TierFirst}, ErrValidation},
		{"empty game", AssignRequest{CustomerName: "A", Tier: model.TierFirst}, ErrValidation},
		{"unknown tier", AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: "third"}, ErrValidation},
		{"explicit device lacks game", AssignRequest{CustomerName: "A", Game: "Rocket League", Tier: model.TierFirst, DeviceID: "beta"}, ErrUnsupportedGame},
		{"unknown explicit device", AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "gamma"}, ErrNotFound},
		{"no device carries game", AssignRequest{CustomerName: "A", Game: "Doom", Tier: model.TierFirst}, ErrNoDeviceSupportsGame},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.Assign(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Errorf("Assign error = %v, want %v", err, tc.want)
			}
		})
	}
	if got := e.Revenue(); got != 0 {
		t.Errorf("revenue after rejected requests = %d, want 0", got)
	}
}

func TestCancelRefundsAndRaisesPending(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	active := mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	mustAssign(t, e, AssignRequest{CustomerName: "B", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})

	if err := e.Cancel(ctx, "alpha", active.Booking.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got := e.Revenue(); got != 0 {
		t.Errorf("revenue after refund = %d, want 0", got)
	}
	if got := e.PendingPromotions(); len(got) != 1 || got[0] != "alpha" {
		t.Errorf("pending promotions = %v, want [alpha]", got)
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	e, _ := newTestEngine()
	if err := e.Cancel(context.Background(), "alpha", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel error = %v, want ErrNotFound", err)
	}
}

func TestRefundClampsAtZero(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	// Persisted revenue can legitimately be lower than an active booking's
	// price (tiers were cheaper before a restart).  The refund must floor
	// at zero, not go negative.
	active := mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierSecond, DeviceID: "alpha"})
	e.mu.Lock()
	e.ledger.reset(100) // below the 150 owed for the second tier
	e.mu.Unlock()

	if err := e.Cancel(ctx, "alpha", active.Booking.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got := e.Revenue(); got != 0 {
		t.Errorf("revenue = %d, want clamped 0", got)
	}
}

func TestPromoteInstallsQueueHead(t *testing.T) {
	e, clk := newTestEngine()
	ctx := context.Background()

	active := mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	b1 := mustAssign(t, e, AssignRequest{CustomerName: "B1", Game: "Fortnite", Tier: model.TierSecond, DeviceID: "alpha"})
	mustAssign(t, e, AssignRequest{CustomerName: "B2", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})

	// Promoting onto a busy device must never overwrite the session.
	if _, err := e.Promote(ctx, "alpha"); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("Promote on busy device error = %v, want ErrDeviceBusy", err)
	}
	if err := e.Cancel(ctx, "alpha", active.Booking.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	promoted, err := e.Promote(ctx, "alpha")
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if promoted.ID != b1.Booking.ID {
		t.Errorf("promoted booking = %s, want the queue head %s", promoted.ID, b1.Booking.ID)
	}
	wantEnd := clk.Now().Add(8 * time.Minute)
	if !promoted.EndTime.Equal(wantEnd) {
		t.Errorf("promoted end time = %v, want %v", promoted.EndTime, wantEnd)
	}
	if got, want := e.Revenue(), 150; got != want { // 80 charged, 80 refunded, 150 charged
		t.Errorf("revenue = %d, want %d", got, want)
	}
	board := e.Board()
	if got := len(board[0].Queue); got != 1 || board[0].Queue[0].CustomerName != "B2" {
		t.Errorf("queue after promotion = %+v, want only B2", board[0].Queue)
	}
}

func TestPromoteEmptyQueue(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.Promote(context.Background(), "alpha"); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("Promote error = %v, want ErrEmptyQueue", err)
	}
	if _, err := e.Promote(context.Background(), "gamma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Promote on unknown device error = %v, want ErrNotFound", err)
	}
}

func TestTickExpiresAndPendingIsIdempotent(t *testing.T) {
	e, clk := newTestEngine()
	ctx := context.Background()

	mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	mustAssign(t, e, AssignRequest{CustomerName: "B", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})

	clk.Advance(5 * time.Minute)
	e.Tick(ctx)
	e.Tick(ctx) // a second tick before the operator answers must not duplicate the signal

	board := e.Board()
	if board[0].Active != nil {
		t.Errorf("session should have expired")
	}
	if got := e.PendingPromotions(); len(got) != 1 || got[0] != "alpha" {
		t.Errorf("pending promotions = %v, want exactly [alpha]", got)
	}
	// Expiry is not a cancellation: revenue stays.
	if got, want := e.Revenue(), 80; got != want {
		t.Errorf("revenue = %d, want %d", got, want)
	}
}

func TestTickLeavesRunningSessionsAlone(t *testing.T) {
	e, clk := newTestEngine()
	mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})

	clk.Advance(4 * time.Minute)
	e.Tick(context.Background())

	if e.Board()[0].Active == nil {
		t.Errorf("session expired a minute early")
	}
}

func TestDecidePromotionDefer(t *testing.T) {
	e, clk := newTestEngine()
	ctx := context.Background()

	mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	mustAssign(t, e, AssignRequest{CustomerName: "B", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	clk.Advance(5 * time.Minute)
	e.Tick(ctx)

	b, err := e.DecidePromotion(ctx, "alpha", DecisionDefer)
	if err != nil || b != nil {
		t.Fatalf("defer = (%v, %v), want (nil, nil)", b, err)
	}
	// The signal is consumed; answering again has nothing to answer.
	if _, err := e.DecidePromotion(ctx, "alpha", DecisionPromote); !errors.Is(err, ErrNotFound) {
		t.Errorf("second decision error = %v, want ErrNotFound", err)
	}
	// Deferring leaves the queue untouched.
	if got := len(e.Board()[0].Queue); got != 1 {
		t.Errorf("queue length after defer = %d, want 1", got)
	}
}

// TestTwoTierScenario walks the venue's standard flow end to end: customer A
// books the short tier, B queues behind on the long tier, A's session runs
// out, the operator promotes B.
func TestTwoTierScenario(t *testing.T) {
	e, clk := newTestEngine()
	ctx := context.Background()

	a := mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	if a.Outcome != OutcomeAssigned || e.Revenue() != 80 {
		t.Fatalf("A: outcome=%q revenue=%d, want assigned/80", a.Outcome, e.Revenue())
	}

	b := mustAssign(t, e, AssignRequest{CustomerName: "B", Game: "Fortnite", Tier: model.TierSecond, DeviceID: "alpha"})
	if b.Outcome != OutcomeQueued || e.Revenue() != 80 {
		t.Fatalf("B: outcome=%q revenue=%d, want queued/80", b.Outcome, e.Revenue())
	}

	clk.Advance(5 * time.Minute)
	e.Tick(ctx)
	if got := e.PendingPromotions(); len(got) != 1 || got[0] != "alpha" {
		t.Fatalf("pending after expiry = %v, want [alpha]", got)
	}

	promoted, err := e.DecidePromotion(ctx, "alpha", DecisionPromote)
	if err != nil {
		t.Fatalf("promote decision failed: %v", err)
	}
	wantEnd := clk.Now().Add(8 * time.Minute)
	if !promoted.EndTime.Equal(wantEnd) {
		t.Errorf("B end time = %v, want tick time + 8 min = %v", promoted.EndTime, wantEnd)
	}
	if got, want := e.Revenue(), 230; got != want {
		t.Errorf("revenue = %d, want %d", got, want)
	}
	board := e.Board()
	if len(board[0].Queue) != 0 || board[0].Active == nil || board[0].Active.CustomerName != "B" {
		t.Errorf("board after promotion = %+v, want B active and empty queue", board[0])
	}
}

func TestRemoveFromQueuePreservesOrder(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	q1 := mustAssign(t, e, AssignRequest{CustomerName: "Q1", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	q2 := mustAssign(t, e, AssignRequest{CustomerName: "Q2", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	q3 := mustAssign(t, e, AssignRequest{CustomerName: "Q3", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})

	if err := e.RemoveFromQueue(ctx, "alpha", q2.Booking.ID); err != nil {
		t.Fatalf("RemoveFromQueue failed: %v", err)
	}
	queue := e.Board()[0].Queue
	if len(queue) != 2 || queue[0].ID != q1.Booking.ID || queue[1].ID != q3.Booking.ID {
		t.Errorf("queue after removal = %+v, want [Q1, Q3] in order", queue)
	}
	// Queued bookings were never charged, so removal touches no money.
	if got, want := e.Revenue(), 80; got != want {
		t.Errorf("revenue = %d, want %d", got, want)
	}
	// Removing something already gone is a no-op.
	if err := e.RemoveFromQueue(ctx, "alpha", q2.Booking.ID); err != nil {
		t.Errorf("second removal errored: %v", err)
	}
}

func TestUpdateTierAffectsOnlyFutureBookings(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	before := mustAssign(t, e, AssignRequest{CustomerName: "A", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "alpha"})
	if err := e.UpdateTier(ctx, model.TierFirst, 10, 200); err != nil {
		t.Fatalf("UpdateTier failed: %v", err)
	}
	if before.Booking.Price != 80 || before.Booking.DurationMin != 5 {
		t.Errorf("existing booking changed to %d min/%d, want 5/80", before.Booking.DurationMin, before.Booking.Price)
	}

	after := mustAssign(t, e, AssignRequest{CustomerName: "B", Game: "Fortnite", Tier: model.TierFirst, DeviceID: "beta"})
	if after.Booking.Price != 200 || after.Booking.DurationMin != 10 {
		t.Errorf("new booking = %d min/%d, want 10/200", after.Booking.DurationMin, after.Booking.Price)
	}

	cases := []struct {
		key            model.TierKey
		minutes, price int
	}{
		{"third", 5, 80},
		{model.TierFirst, 0, 80},
		{model.TierFirst, 5, -1},
	}
	for _, tc := range cases {
		if err := e.UpdateTier(ctx, tc.key, tc.minutes, tc.price); !errors.Is(err, ErrValidation) {
			t.Errorf("UpdateTier(%q, %d, %d) error = %v, want ErrValidation", tc.key, tc.minutes, tc.price, err)
		}
	}
}

func TestRestoreDropsMalformedRecords(t *testing.T) {
	clk := newFakeClock()
	e := New(testCatalog(), clk, nil, nil)

	end := clk.Now().Add(3 * time.Minute).Format(time.RFC3339Nano)
	e.Restore(&store.Snapshot{
		Devices: map[string]store.DeviceRecord{
			"alpha": {
				Active: &store.BookingRecord{ID: "b1", CustomerName: "A", Game: "Fortnite", DurationMin: 5, Price: 80, EndTime: end},
				Queue:  []store.BookingRecord{{ID: "b2", CustomerName: "B", Game: "Fortnite", DurationMin: 8, Price: 150}},
			},
			"beta":  {Active: &store.BookingRecord{ID: "b3", EndTime: "not-a-time"}},
			"ghost": {Queue: []store.BookingRecord{{ID: "b4"}}},
		},
		Revenue: 80,
		Tiers:   model.DefaultTiers(),
	})

	board := e.Board()
	if board[0].Active == nil || board[0].Active.ID != "b1" {
		t.Errorf("alpha active = %+v, want b1 restored", board[0].Active)
	}
	if len(board[0].Queue) != 1 || board[0].Queue[0].ID != "b2" {
		t.Errorf("alpha queue = %+v, want [b2]", board[0].Queue)
	}
	if board[1].Active != nil {
		t.Errorf("beta restored a booking with an unparseable end time")
	}
	if got := e.Revenue(); got != 80 {
		t.Errorf("revenue = %d, want 80", got)
	}
}
