package classifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"staking-reward-ledger/internal/chain"
	"staking-reward-ledger/internal/domain"
)

// Runner classifies a batch of addresses concurrently against a read-only
// activity snapshot. Per-address work is independent: each worker writes only
// its own slot in the result slice, so no coordination is needed beyond the
// final barrier.
type Runner struct {
	source     chain.ActivitySource
	classifier *Classifier
	workers    int
	verbose    bool
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Source  chain.ActivitySource
	Config  Config
	Workers int // defaults to NumCPU
	Verbose bool
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		source:     opts.Source,
		classifier: New(opts.Config),
		workers:    workers,
		verbose:    opts.Verbose,
	}
}

// Classify fetches activity and classifies every address for the period.
// Results preserve the input address order.
//
// Data gaps are recovered locally: an address whose data is unavailable is
// classified from an empty history (every period day non-compliant) and
// carries a warning; the batch never aborts for one address. Any other
// upstream failure aborts the batch so the caller can retry.
func (r *Runner) Classify(ctx context.Context, periodStart, periodEnd time.Time, addrs []domain.Address) ([]*domain.Participant, error) {
	participants := make([]*domain.Participant, len(addrs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, addr := range addrs {
		g.Go(func() error {
			p, err := r.classifyOne(ctx, addr, periodStart, periodEnd)
			if err != nil {
				return err
			}
			participants[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classify batch: %w", err)
	}

	r.log("classified %d addresses for period %s..%s",
		len(participants), periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))
	return participants, nil
}

// classifyOne builds one Participant record.
func (r *Runner) classifyOne(ctx context.Context, addr domain.Address, periodStart, periodEnd time.Time) (*domain.Participant, error) {
	// Full history: the sale check is lifetime-wide, not period-scoped.
	history, err := r.source.GetDailyActivity(ctx, addr, time.Time{}, periodEnd)
	if err != nil {
		if !errors.Is(err, chain.ErrDataUnavailable) {
			return nil, err
		}
		history = nil
	}

	res := r.classifier.Classify(periodStart, periodEnd, history)

	p := &domain.Participant{
		Address:  addr,
		Category: res.Category,
		Warnings: res.Warnings,
	}
	if err != nil {
		p.Warnings = append(p.Warnings, fmt.Sprintf("data gap: %v", err))
	}

	for _, a := range history {
		if !a.Day.Before(periodStart) && a.Day.Before(periodEnd) {
			p.Activity = append(p.Activity, a)
		}
	}

	balance, err := r.source.GetCurrentBalance(ctx, addr)
	if err != nil {
		if !errors.Is(err, chain.ErrDataUnavailable) {
			return nil, err
		}
		p.Warnings = append(p.Warnings, fmt.Sprintf("balance unavailable: %v", err))
	} else {
		p.Balance = balance
	}

	return p, nil
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[classifier] "+format, args...)
	}
}
