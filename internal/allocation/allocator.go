// Package allocation computes exact per-address payouts from a fixed pool.
// Pure arithmetic over supplied data: no persistence, no RPC, no floats.
package allocation

import (
	"fmt"
	"math/big"
	"sort"

	"staking-reward-ledger/internal/domain"
)

// Entry is one eligible participant going into the allocator.
type Entry struct {
	Address           domain.Address
	EffectiveCategory domain.Category
	Weight            *big.Rat // caller-computed raw score, >= 0
}

// Allocate splits pool across entries proportionally to
// weight × multiplier(effective category), in exact rational arithmetic.
//
// Each provisional share is truncated to a base unit; the truncation remainder
// is then handed out one base unit at a time to the entries with the largest
// fractional remainder, ties broken by address byte order. Whenever total
// weight is positive the final amounts sum to exactly the pool; a zero total
// weight yields no allocations and no error.
func Allocate(roundID string, entries []Entry, pool domain.Amount, multipliers domain.CategoryMultipliers) ([]*domain.RewardAllocation, error) {
	if pool.Sign() < 0 {
		return nil, fmt.Errorf("allocate: negative pool %s", pool)
	}

	type share struct {
		idx       int
		weighted  *big.Rat
		truncated *big.Int
		frac      *big.Rat
	}

	shares := make([]share, 0, len(entries))
	totalWeight := new(big.Rat)

	for i, e := range entries {
		if e.Weight == nil || e.Weight.Sign() < 0 {
			return nil, fmt.Errorf("allocate: entry %s has invalid weight", e.Address.Hex())
		}
		weighted := new(big.Rat).Mul(e.Weight, multipliers.Multiplier(e.EffectiveCategory))
		if weighted.Sign() < 0 {
			return nil, fmt.Errorf("allocate: entry %s has negative weighted score", e.Address.Hex())
		}
		totalWeight.Add(totalWeight, weighted)
		shares = append(shares, share{idx: i, weighted: weighted})
	}

	// Nothing to distribute: the round records zero distributed, not an error.
	if totalWeight.Sign() == 0 {
		return nil, nil
	}

	// provisional_i = weighted_i * pool / totalWeight, truncated to base units.
	poolRat := pool.Rat()
	distributed := new(big.Int)
	for i := range shares {
		provisional := new(big.Rat).Mul(shares[i].weighted, poolRat)
		provisional.Quo(provisional, totalWeight)

		truncated := new(big.Int).Quo(provisional.Num(), provisional.Denom())
		shares[i].truncated = truncated
		shares[i].frac = new(big.Rat).Sub(provisional, new(big.Rat).SetInt(truncated))
		distributed.Add(distributed, truncated)
	}

	// Largest-remainder pass: the dust is an exact integer number of base units.
	remainder := new(big.Int).Sub(pool.BaseUnits(), distributed)
	if remainder.Sign() < 0 {
		return nil, domain.Violation(domain.InvariantPoolNotExceeded,
			"truncated allocations already exceed pool by %s base units", new(big.Int).Neg(remainder))
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := shares[order[a]], shares[order[b]]
		if c := sa.frac.Cmp(sb.frac); c != 0 {
			return c > 0 // largest fraction first
		}
		return domain.AddressLess(entries[sa.idx].Address, entries[sb.idx].Address)
	})

	one := big.NewInt(1)
	for _, oi := range order {
		if remainder.Sign() == 0 {
			break
		}
		if shares[oi].frac.Sign() == 0 {
			// Only entries owed a fractional unit receive dust.
			continue
		}
		shares[oi].truncated.Add(shares[oi].truncated, one)
		remainder.Sub(remainder, one)
	}

	allocations := make([]*domain.RewardAllocation, 0, len(shares))
	total := new(big.Int)
	for _, s := range shares {
		e := entries[s.idx]
		total.Add(total, s.truncated)
		allocations = append(allocations, &domain.RewardAllocation{
			Address:           e.Address,
			RoundID:           roundID,
			RawScore:          new(big.Rat).Set(e.Weight),
			AppliedMultiplier: multipliers.Multiplier(e.EffectiveCategory),
			Amount:            domain.NewAmountFromBig(s.truncated),
			Status:            domain.AllocationPending,
		})
	}

	if total.Cmp(pool.BaseUnits()) > 0 {
		return nil, domain.Violation(domain.InvariantPoolNotExceeded,
			"allocated %s base units against a pool of %s", total, pool.BaseUnits())
	}
	return allocations, nil
}
