package model

import (
	"fmt"
	"time"
)

// Booking is a single customer's rental session on a device.  A booking is
// created when a request is accepted and lives in exactly one of two states:
// active (EndTime is set and the booking occupies a device) or queued
// (EndTime is zero and the booking waits in a device's queue).  The duration
// and price are captured from the tier at creation time and never change,
// even when the tier configuration is updated afterwards.
type Booking struct {
	ID           string    // unique identifier assigned at creation
	CustomerName string    // who booked the session
	Game         string    // requested game title
	DurationMin  int       // session length in minutes, from the tier
	Price        int       // price in rupees, from the tier
	EndTime      time.Time // when the session ends; zero while queued
}

// Active reports whether the booking has been started on a device.  Queued
// bookings have no end time yet.
func (b *Booking) Active() bool { return !b.EndTime.IsZero() }

// Remaining returns the time left until the booking's end time, floored at
// zero.  Calling it on a queued booking returns zero.
func (b *Booking) Remaining(now time.Time) time.Duration {
	if !b.Active() {
		return 0
	}
	d := b.EndTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RemainingLabel formats the remaining time as "m:ss" for display, e.g.
// "4:07".  Expired or queued bookings render as "0:00".
func (b *Booking) RemainingLabel(now time.Time) string {
	secs := int(b.Remaining(now) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// EstimatedWaitMinutes computes how long the booking at the given queue
// position is expected to wait: the current active booking's remaining time
// rounded up to whole minutes, plus the full durations of every queued
// booking ahead of that position.  A nil active booking contributes nothing.
func EstimatedWaitMinutes(active *Booking, queue []*Booking, position int, now time.Time) int {
	wait := 0
	if active != nil {
		rem := active.Remaining(now)
		wait += int((rem + time.Minute - 1) / time.Minute)
	}
	for i := 0; i < position && i < len(queue); i++ {
		wait += queue[i].DurationMin
	}
	return wait
}
