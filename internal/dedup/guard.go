// Package dedup cross-checks a draft round's allocations against prior
// finalized payouts and flags repeat or suspicious recipients. Flags start
// PENDING and park the round until an operator decides each one.
package dedup

import (
	"math/big"
	"sort"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

// Linker is an optional address-clustering hint source. Linked(a) returns
// addresses believed to be controlled by the same entity as a.
type Linker interface {
	Linked(addr domain.Address) []domain.Address
}

// Config holds the guard's operational parameters.
type Config struct {
	// LookbackRounds bounds the repeat-recipient rule: a payment within the
	// most recent finalized round is HIGH risk, within LookbackRounds MEDIUM.
	LookbackRounds int

	// AnomalyFactor triggers the amount-anomaly rule when the proposed amount
	// exceeds factor × the address's historical average payout.
	AnomalyFactor *big.Rat
}

// DefaultConfig returns the production defaults: 4 rounds of lookback,
// anomalies at 3× the historical average.
func DefaultConfig() Config {
	return Config{LookbackRounds: 4, AnomalyFactor: big.NewRat(3, 1)}
}

// Guard evaluates the duplicate rules. All rules are additive: an address can
// match several, and the flag's risk is the maximum across matched rules.
type Guard struct {
	cfg    Config
	linker Linker // nil disables the linked-address rule
}

// New creates a Guard. linker may be nil.
func New(cfg Config, linker Linker) *Guard {
	if cfg.AnomalyFactor == nil {
		cfg.AnomalyFactor = big.NewRat(3, 1)
	}
	return &Guard{cfg: cfg, linker: linker}
}

// Detect flags every allocation that trips at least one rule.
// prior is the PAID history of the last LookbackRounds finalized rounds.
// Flags come back ordered by address for determinism.
func (g *Guard) Detect(allocations []*domain.RewardAllocation, prior []storage.PriorPayment) []*domain.DuplicateFlag {
	history := indexHistory(prior)

	inRound := make(map[domain.Address]bool, len(allocations))
	for _, a := range allocations {
		inRound[a.Address] = true
	}

	var flags []*domain.DuplicateFlag
	for _, alloc := range allocations {
		flag := &domain.DuplicateFlag{
			Address:  alloc.Address,
			RoundID:  alloc.RoundID,
			Risk:     domain.RiskLow,
			Decision: domain.DecisionPending,
		}

		g.checkRepeatRecipient(flag, history[alloc.Address])
		g.checkLinkedAddress(flag, alloc.Address, inRound)
		g.checkAmountAnomaly(flag, alloc, history[alloc.Address])

		if len(flag.Reasons) > 0 {
			flags = append(flags, flag)
		}
	}

	sort.Slice(flags, func(i, j int) bool {
		return domain.AddressLess(flags[i].Address, flags[j].Address)
	})
	return flags
}

// checkRepeatRecipient: paid within the most recent finalized round -> HIGH,
// within the lookback window -> MEDIUM.
func (g *Guard) checkRepeatRecipient(flag *domain.DuplicateFlag, payments []storage.PriorPayment) {
	matched := false
	for _, p := range payments {
		if p.RoundsAgo > g.cfg.LookbackRounds {
			continue
		}
		matched = true
		if p.RoundsAgo <= 1 {
			flag.Risk = domain.MaxRisk(flag.Risk, domain.RiskHigh)
		} else {
			flag.Risk = domain.MaxRisk(flag.Risk, domain.RiskMedium)
		}
		flag.PriorPayments = append(flag.PriorPayments, domain.PriorPaymentRef{
			RoundID: p.Allocation.RoundID,
			Address: p.Allocation.Address,
			Amount:  p.Allocation.Amount,
		})
	}
	if matched {
		flag.Reasons = append(flag.Reasons, domain.ReasonRepeatRecipient)
	}
}

// checkLinkedAddress: a clustering hint ties this address to another recipient
// in the same round -> HIGH.
func (g *Guard) checkLinkedAddress(flag *domain.DuplicateFlag, addr domain.Address, inRound map[domain.Address]bool) {
	if g.linker == nil {
		return
	}
	for _, linked := range g.linker.Linked(addr) {
		if linked != addr && inRound[linked] {
			flag.Risk = domain.MaxRisk(flag.Risk, domain.RiskHigh)
			flag.Reasons = append(flag.Reasons, domain.ReasonLinkedAddress)
			return
		}
	}
}

// checkAmountAnomaly: proposed amount > AnomalyFactor × historical average -> MEDIUM.
// Addresses without history cannot be anomalous.
func (g *Guard) checkAmountAnomaly(flag *domain.DuplicateFlag, alloc *domain.RewardAllocation, payments []storage.PriorPayment) {
	if len(payments) == 0 {
		return
	}

	total := new(big.Rat)
	for _, p := range payments {
		total.Add(total, p.Allocation.Amount.Rat())
	}
	avg := new(big.Rat).Quo(total, new(big.Rat).SetInt64(int64(len(payments))))
	threshold := new(big.Rat).Mul(avg, g.cfg.AnomalyFactor)

	if alloc.Amount.Rat().Cmp(threshold) > 0 {
		flag.Risk = domain.MaxRisk(flag.Risk, domain.RiskMedium)
		flag.Reasons = append(flag.Reasons, domain.ReasonAmountAnomaly)
	}
}

// indexHistory groups prior payments by address.
func indexHistory(prior []storage.PriorPayment) map[domain.Address][]storage.PriorPayment {
	idx := make(map[domain.Address][]storage.PriorPayment)
	for _, p := range prior {
		if p.Allocation == nil {
			continue
		}
		idx[p.Allocation.Address] = append(idx[p.Allocation.Address], p)
	}
	return idx
}

// StaticLinker is a fixed clustering table, useful for tests and for feeding
// externally computed clusters into the guard.
type StaticLinker map[domain.Address][]domain.Address

// Linked implements Linker.
func (l StaticLinker) Linked(addr domain.Address) []domain.Address {
	return l[addr]
}
