// Package main runs one complete distribution round end to end:
// classification → eligibility → allocation → duplicate review → finalize,
// then writes the round report. Without DSNs it runs self-contained on
// in-memory stores and a stub activity source.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"staking-reward-ledger/internal/chain/stub"
	"staking-reward-ledger/internal/classifier"
	"staking-reward-ledger/internal/config"
	"staking-reward-ledger/internal/dedup"
	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/eligibility"
	"staking-reward-ledger/internal/reporting"
	"staking-reward-ledger/internal/round"
	"staking-reward-ledger/internal/storage"
	chstore "staking-reward-ledger/internal/storage/clickhouse"
	"staking-reward-ledger/internal/storage/memory"
	"staking-reward-ledger/internal/storage/migrations"
	"staking-reward-ledger/internal/storage/postgres"
)

func main() {
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	poolTokens := flag.Int64("pool", 10000, "Total pool for the round, in tokens")
	periodDays := flag.Int("period-days", 30, "Length of the analysis period in days")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling round...\n", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Verbose = true
	}

	stores, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Storage error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(ctx, cfg, stores, *outputDir, *poolTokens, *periodDays); err != nil {
		fmt.Fprintf(os.Stderr, "Round error: %v\n", err)
		os.Exit(1)
	}
}

// ledgerStores groups the persistence interfaces a round needs.
type ledgerStores struct {
	rounds      storage.RoundStore
	allocations storage.AllocationStore
	flags       storage.FlagStore
	amnesty     storage.AmnestyStore
	audit       storage.AuditEventStore
}

// buildStores wires Postgres and ClickHouse when DSNs are configured,
// in-memory stores otherwise.
func buildStores(ctx context.Context, cfg *config.Config) (*ledgerStores, func(), error) {
	cleanup := func() {}

	var stores ledgerStores
	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, cleanup, err
		}
		ledger := postgres.NewLedgerStore(pool)
		stores.rounds = ledger
		stores.allocations = ledger
		stores.flags = ledger
		stores.amnesty = postgres.NewAmnestyStore(pool)
		cleanup = pool.Close
	} else {
		ledger := memory.NewLedgerStore()
		stores.rounds = ledger
		stores.allocations = ledger
		stores.flags = ledger
		stores.amnesty = memory.NewAmnestyStore()
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		stores.audit = chstore.NewAuditEventStore(conn)
		prev := cleanup
		cleanup = func() {
			conn.Close()
			prev()
		}
	} else {
		stores.audit = memory.NewAuditEventStore()
	}

	return &stores, cleanup, nil
}

func run(ctx context.Context, cfg *config.Config, stores *ledgerStores, outputDir string, poolTokens int64, periodDays int) error {
	classifierCfg, err := cfg.ClassifierConfig()
	if err != nil {
		return err
	}
	dedupCfg, err := cfg.DedupConfig()
	if err != nil {
		return err
	}
	multipliers, err := cfg.CategoryMultipliers()
	if err != nil {
		return err
	}

	periodEnd := domain.DayKey(time.Now().UTC())
	periodStart := periodEnd.AddDate(0, 0, -periodDays)

	source, addrs := fixtureSource(periodStart, periodEnd)

	coord := round.NewCoordinator(round.Config{
		Rounds:      stores.rounds,
		Allocations: stores.allocations,
		Amnesty:     stores.amnesty,
		Audit:       stores.audit,
		Runner: classifier.NewRunner(classifier.RunnerOptions{
			Source:  source,
			Config:  classifierCfg,
			Workers: cfg.Workers,
			Verbose: cfg.Verbose,
		}),
		Engine:         eligibility.NewEngine(),
		Guard:          dedup.New(dedupCfg, nil),
		LookbackRounds: cfg.LookbackRounds,
		Verbose:        cfg.Verbose,
	})

	fmt.Println("=== Distribution Round ===")
	r, err := coord.BeginRound(ctx, round.RoundParams{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		TotalPool:   domain.NewAmountFromTokens(poolTokens),
		Multipliers: multipliers,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Round %s: period %s..%s, pool %s\n",
		r.ID, periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"), r.TotalPool)

	participants, err := coord.Classify(ctx, r.ID, addrs)
	if err != nil {
		return err
	}
	for _, p := range participants {
		fmt.Printf("  %s -> %s\n", p.Address.Hex(), p.Category)
	}

	// The second fixture address misses days; grant it amnesty as an
	// operator would.
	if err := coord.GrantAmnesty(ctx, &domain.AmnestyGrant{
		Address:   addrs[1],
		RoundID:   r.ID,
		Operator:  "demo-operator",
		GrantedAt: time.Now().UTC(),
		Reason:    "demo: verified exchange outage",
	}); err != nil {
		return err
	}

	results, err := coord.ComputeEligibility(ctx, r.ID)
	if err != nil {
		return err
	}
	eligible := 0
	for _, res := range results {
		if res.Eligible {
			eligible++
		}
	}
	fmt.Printf("Eligible: %d of %d\n", eligible, len(results))

	allocations, err := coord.AllocateRewards(ctx, r.ID)
	if err != nil {
		return err
	}
	for _, a := range allocations {
		fmt.Printf("  %s <- %s tokens\n", a.Address.Hex(), a.Amount)
	}

	flags, err := coord.DetectDuplicates(ctx, r.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Duplicate flags: %d\n", len(flags))

	if len(flags) > 0 {
		n, err := coord.ResolveAll(ctx, r.ID, domain.DecisionInclude, "demo-operator")
		if err != nil {
			return err
		}
		fmt.Printf("Bulk directive: %d flags included by demo-operator\n", n)
	}

	if _, err := coord.FinalizeRound(ctx, r.ID); err != nil {
		return err
	}
	fmt.Println("Round finalized.")

	// Report
	gen := reporting.NewGenerator(stores.rounds, stores.allocations, stores.flags, stores.amnesty, stores.audit)
	report, err := gen.Generate(ctx, r.ID, participants)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	mdPath := filepath.Join(outputDir, "ROUND_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	csvPath := filepath.Join(outputDir, "allocations.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderAllocationsCSV(report)), 0o644); err != nil {
		return fmt.Errorf("write allocations csv: %w", err)
	}

	fmt.Println("\nRound completed successfully:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
	return nil
}

// fixtureSource builds a stub activity snapshot exercising every category:
// a perfect buyer, a buyer with missed days, a seller, and a transferrer.
func fixtureSource(periodStart, periodEnd time.Time) (*stub.ActivitySource, []domain.Address) {
	mkAddr := func(b byte) domain.Address {
		var a domain.Address
		a[19] = b
		return a
	}

	source := stub.NewActivitySource()
	perfect := mkAddr(0x01)
	missed := mkAddr(0x02)
	seller := mkAddr(0x03)
	transferrer := mkAddr(0x04)

	day := 0
	for d := periodStart; d.Before(periodEnd); d = d.AddDate(0, 0, 1) {
		inBand := domain.MustParseAmount("3.0")

		source.Activity[perfect] = append(source.Activity[perfect],
			domain.DailyActivity{Day: d, Purchased: inBand})

		// Misses every fifth day.
		if day%5 != 0 {
			source.Activity[missed] = append(source.Activity[missed],
				domain.DailyActivity{Day: d, Purchased: inBand})
		}

		act := domain.DailyActivity{Day: d, Purchased: inBand}
		if day == 3 {
			act.Sold = true
		}
		source.Activity[seller] = append(source.Activity[seller], act)

		tact := domain.DailyActivity{Day: d, Purchased: inBand}
		if day == 7 {
			tact.TransferredOut = domain.MustParseAmount("1.5")
		}
		source.Activity[transferrer] = append(source.Activity[transferrer], tact)

		day++
	}

	for _, a := range []domain.Address{perfect, missed, seller, transferrer} {
		source.Balances[a] = domain.NewAmountFromTokens(90)
	}

	return source, []domain.Address{perfect, missed, seller, transferrer}
}
