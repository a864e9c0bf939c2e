package domain

import "time"

// AmnestyGrant is a manual, auditable eligibility override for one (address, round).
// Only valid for MISSED_PURCHASE or TRANSFERRED addresses; attaching one to a
// SOLD_TOKEN address is an invariant violation, not a warning.
type AmnestyGrant struct {
	Address   Address
	RoundID   string
	Operator  string
	GrantedAt time.Time
	Reason    string // free text, required for the audit trail
}
