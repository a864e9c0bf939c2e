// Package classifier assigns each address exactly one behavior category for a
// distribution round. Classification is a pure function of the activity
// history: identical input always yields an identical category.
package classifier

import (
	"fmt"
	"time"

	"staking-reward-ledger/internal/domain"
)

// Config holds the compliant-purchase band. The band is inclusive on both
// ends and is an operational parameter, not a constant.
type Config struct {
	BandMin domain.Amount // e.g. 2.8 tokens
	BandMax domain.Amount // e.g. 3.2 tokens
}

// DefaultConfig returns the band observed in production: 2.8–3.2 units/day.
func DefaultConfig() Config {
	return Config{
		BandMin: domain.MustParseAmount("2.8"),
		BandMax: domain.MustParseAmount("3.2"),
	}
}

// Result is the outcome of classifying one address.
type Result struct {
	Category      domain.Category
	CompliantDays int
	MissedDays    int
	Transferred   bool
	Warnings      []string
}

// Classifier turns an address's activity history into a category.
type Classifier struct {
	cfg Config
}

// New creates a Classifier with the given band config.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify categorizes one address.
//
// history is the address's full lifetime activity, ordered by day ASC; the
// period [periodStart, periodEnd) is the analysis window. A sale anywhere in
// history yields SOLD_TOKEN and overrides every other signal. Otherwise every
// period day needs a compliant purchase for PERFECT; any missed or
// non-compliant day yields MISSED_PURCHASE; transferred-out volume (without a
// sale) yields TRANSFERRED. A day with no data counts as non-compliant.
func (c *Classifier) Classify(periodStart, periodEnd time.Time, history []domain.DailyActivity) Result {
	// Sale check runs over the full history, not just the period. Sticky.
	for _, a := range history {
		if a.Sold {
			return Result{Category: domain.CategorySoldToken}
		}
	}

	byDay := make(map[time.Time]domain.DailyActivity, len(history))
	for _, a := range history {
		byDay[domain.DayKey(a.Day)] = a
	}

	res := Result{}
	for day := domain.DayKey(periodStart); day.Before(periodEnd); day = day.AddDate(0, 0, 1) {
		a, ok := byDay[day]
		if !ok {
			res.MissedDays++
			res.Warnings = append(res.Warnings, fmt.Sprintf("no activity recorded for %s", day.Format("2006-01-02")))
			continue
		}
		if c.compliant(a.Purchased) {
			res.CompliantDays++
		} else {
			res.MissedDays++
		}
		if a.TransferredOut.Sign() > 0 {
			res.Transferred = true
		}
	}

	switch {
	case res.Transferred:
		res.Category = domain.CategoryTransferred
	case res.MissedDays > 0:
		res.Category = domain.CategoryMissedPurchase
	default:
		res.Category = domain.CategoryPerfect
	}
	return res
}

// compliant reports whether a day's purchase volume falls within [BandMin, BandMax].
func (c *Classifier) compliant(purchased domain.Amount) bool {
	return purchased.Cmp(c.cfg.BandMin) >= 0 && purchased.Cmp(c.cfg.BandMax) <= 0
}
