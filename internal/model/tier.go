package model

// TierKey selects one of the two fixed duration tiers a booking may use.
type TierKey string

const (
	TierFirst  TierKey = "first"
	TierSecond TierKey = "second"
)

// ValidTierKey reports whether k names one of the two configured tiers.
func ValidTierKey(k TierKey) bool { return k == TierFirst || k == TierSecond }

// Tier is a bookable (duration, price) pair.  Exactly two tiers exist at any
// time; they are mutable only through an explicit settings update and such an
// update never touches bookings already created from the old values.
type Tier struct {
	Minutes int // session duration in minutes, at least 1
	Price   int // price in rupees, never negative
}

// Tiers holds the two configured tiers keyed by TierFirst and TierSecond.
type Tiers struct {
	First  Tier
	Second Tier
}

// DefaultTiers returns the venue's stock price list: 5 minutes for 80 and
// 8 minutes for 150.
func DefaultTiers() Tiers {
	return Tiers{
		First:  Tier{Minutes: 5, Price: 80},
		Second: Tier{Minutes: 8, Price: 150},
	}
}

// ByKey looks up a tier by key.  The second return value is false for an
// unknown key.
func (t Tiers) ByKey(k TierKey) (Tier, bool) {
	switch k {
	case TierFirst:
		return t.First, true
	case TierSecond:
		return t.Second, true
	}
	return Tier{}, false
}

// Set replaces the tier stored under k and reports whether k was valid.
func (t *Tiers) Set(k TierKey, tier Tier) bool {
	switch k {
	case TierFirst:
		t.First = tier
	case TierSecond:
		t.Second = tier
	default:
		return false
	}
	return true
}
