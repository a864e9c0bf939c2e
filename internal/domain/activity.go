package domain

import "time"

// DailyActivity is one day of observed behavior for an address.
// Records are append-only within an analysis period.
type DailyActivity struct {
	Day            time.Time // UTC, truncated to midnight
	Purchased      Amount    // purchase volume for the day
	Sold           bool      // any sale occurred that day
	TransferredOut Amount    // volume sent to other wallets (pool transfers excluded upstream)
}

// DayKey normalizes a timestamp to its UTC calendar day.
func DayKey(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Participant is one address under analysis for a round.
// Mutated only by the classifier during a run; immutable once the round is finalized.
type Participant struct {
	Address  Address
	Activity []DailyActivity // ordered by day ASC, one entry per active day
	Balance  Amount          // current token balance
	Category Category
	Eligible bool

	// Warnings carries recoverable data-gap notes (e.g. activity missing for a day).
	// A warning never fails the round; the affected days count as non-compliant.
	Warnings []string
}
