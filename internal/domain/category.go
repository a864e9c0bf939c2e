package domain

// Category classifies an address's trading behavior for one round.
type Category string

const (
	// CategoryPerfect: a compliant purchase every day of the period, no sales, no transfers.
	CategoryPerfect Category = "PERFECT"

	// CategoryMissedPurchase: at least one missed or non-compliant day, no sales.
	CategoryMissedPurchase Category = "MISSED_PURCHASE"

	// CategorySoldToken: at least one sale anywhere in lifetime history.
	// Sticky: the address is permanently ineligible in this and every later round.
	CategorySoldToken Category = "SOLD_TOKEN"

	// CategoryTransferred: tokens moved out to another wallet, no sales.
	// A warning category, not a block.
	CategoryTransferred Category = "TRANSFERRED"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPerfect, CategoryMissedPurchase, CategorySoldToken, CategoryTransferred:
		return true
	}
	return false
}

// AmnestyAllowed reports whether an amnesty grant may ever apply to this category.
// SOLD_TOKEN is never amnestied; PERFECT does not need one.
func (c Category) AmnestyAllowed() bool {
	return c == CategoryMissedPurchase || c == CategoryTransferred
}
