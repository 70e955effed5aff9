package engine

// RevenueLedger keeps the venue's single running revenue total.  The total
// is credited when a booking becomes active and debited when an active
// booking is cancelled; debits are clamped so the total never goes negative.
// No transaction history is retained.
//
// The ledger is not safe for concurrent use on its own; the engine mutex
// serializes all access.
type RevenueLedger struct {
	total int
}

// Credit adds amount to the total.  Non-positive amounts are ignored.
func (l *RevenueLedger) Credit(amount int) {
	if amount > 0 {
		l.total += amount
	}
}

// Debit subtracts amount from the total, flooring at zero.  Non-positive
// amounts are ignored.
func (l *RevenueLedger) Debit(amount int) {
	if amount <= 0 {
		return
	}
	l.total -= amount
	if l.total < 0 {
		l.total = 0
	}
}

// Total returns the accumulated revenue.
func (l *RevenueLedger) Total() int { return l.total }

// reset replaces the total when restoring persisted state.  Negative values
// are normalised to zero.
func (l *RevenueLedger) reset(total int) {
	if total < 0 {
		total = 0
	}
	l.total = total
}
