package dedup

import (
	"testing"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[19] = b
	return a
}

func alloc(a domain.Address, roundID string, tokens int64) *domain.RewardAllocation {
	return &domain.RewardAllocation{
		Address: a,
		RoundID: roundID,
		Amount:  domain.NewAmountFromTokens(tokens),
		Status:  domain.AllocationPending,
	}
}

func paid(a domain.Address, roundID string, tokens int64, roundsAgo int) storage.PriorPayment {
	p := alloc(a, roundID, tokens)
	p.Status = domain.AllocationPaid
	return storage.PriorPayment{Allocation: p, RoundsAgo: roundsAgo}
}

func TestDetect_RepeatRecipient(t *testing.T) {
	guard := New(DefaultConfig(), nil)

	// Address D was paid in round N-1 and appears again in round N.
	d := addr(4)
	flags := guard.Detect(
		[]*domain.RewardAllocation{alloc(d, "round-n", 100)},
		[]storage.PriorPayment{paid(d, "round-n-1", 100, 1)},
	)

	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
	f := flags[0]
	if f.Risk != domain.RiskHigh {
		t.Errorf("risk = %s, want HIGH for a payment one round ago", f.Risk)
	}
	if len(f.Reasons) != 1 || f.Reasons[0] != domain.ReasonRepeatRecipient {
		t.Errorf("reasons = %v, want [repeat_recipient]", f.Reasons)
	}
	if f.Decision != domain.DecisionPending {
		t.Errorf("decision = %s, want PENDING", f.Decision)
	}
	if len(f.PriorPayments) != 1 || f.PriorPayments[0].RoundID != "round-n-1" {
		t.Errorf("prior payment refs = %+v", f.PriorPayments)
	}
}

func TestDetect_RepeatRecipientWithinLookbackIsMedium(t *testing.T) {
	guard := New(Config{LookbackRounds: 4}, nil)

	a := addr(1)
	flags := guard.Detect(
		[]*domain.RewardAllocation{alloc(a, "round-n", 100)},
		[]storage.PriorPayment{paid(a, "round-n-3", 100, 3)},
	)

	if len(flags) != 1 || flags[0].Risk != domain.RiskMedium {
		t.Fatalf("expected one MEDIUM flag, got %+v", flags)
	}
}

func TestDetect_OutsideLookbackIgnored(t *testing.T) {
	guard := New(Config{LookbackRounds: 2}, nil)

	a := addr(1)
	flags := guard.Detect(
		[]*domain.RewardAllocation{alloc(a, "round-n", 100)},
		[]storage.PriorPayment{paid(a, "round-old", 100, 5)},
	)
	if len(flags) != 0 {
		t.Fatalf("payment outside lookback must not flag, got %+v", flags)
	}
}

func TestDetect_LinkedAddress(t *testing.T) {
	a, b := addr(1), addr(2)
	linker := StaticLinker{a: {b}, b: {a}}
	guard := New(DefaultConfig(), linker)

	flags := guard.Detect(
		[]*domain.RewardAllocation{alloc(a, "round-n", 100), alloc(b, "round-n", 100)},
		nil,
	)

	if len(flags) != 2 {
		t.Fatalf("got %d flags, want 2 (both sides of the cluster)", len(flags))
	}
	for _, f := range flags {
		if f.Risk != domain.RiskHigh {
			t.Errorf("%s: risk = %s, want HIGH", f.Address.Hex(), f.Risk)
		}
		if len(f.Reasons) != 1 || f.Reasons[0] != domain.ReasonLinkedAddress {
			t.Errorf("%s: reasons = %v", f.Address.Hex(), f.Reasons)
		}
	}
}

func TestDetect_LinkedAddressOutsideRoundIgnored(t *testing.T) {
	a, stranger := addr(1), addr(9)
	guard := New(DefaultConfig(), StaticLinker{a: {stranger}})

	flags := guard.Detect([]*domain.RewardAllocation{alloc(a, "round-n", 100)}, nil)
	if len(flags) != 0 {
		t.Fatalf("link to an address not in the round must not flag, got %+v", flags)
	}
}

func TestDetect_AmountAnomaly(t *testing.T) {
	guard := New(DefaultConfig(), nil)

	a := addr(1)
	// Historical average 100; proposed 1000 > 3x average.
	flags := guard.Detect(
		[]*domain.RewardAllocation{alloc(a, "round-n", 1000)},
		[]storage.PriorPayment{
			paid(a, "round-n-2", 80, 2),
			paid(a, "round-n-3", 120, 3),
		},
	)

	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
	f := flags[0]
	// Repeat-recipient (MEDIUM, within lookback) + anomaly (MEDIUM) stack additively.
	if len(f.Reasons) != 2 {
		t.Errorf("reasons = %v, want repeat_recipient and amount_anomaly", f.Reasons)
	}
	if f.Risk != domain.RiskMedium {
		t.Errorf("risk = %s, want MEDIUM", f.Risk)
	}
}

func TestDetect_RiskIsMaxAcrossRules(t *testing.T) {
	a, b := addr(1), addr(2)
	guard := New(DefaultConfig(), StaticLinker{a: {b}})

	// Repeat within 1 round (HIGH) + link (HIGH) + anomaly (MEDIUM): still HIGH.
	flags := guard.Detect(
		[]*domain.RewardAllocation{alloc(a, "round-n", 1000), alloc(b, "round-n", 10)},
		[]storage.PriorPayment{paid(a, "round-n-1", 10, 1)},
	)

	var fa *domain.DuplicateFlag
	for _, f := range flags {
		if f.Address == a {
			fa = f
		}
	}
	if fa == nil {
		t.Fatal("no flag for address a")
	}
	if fa.Risk != domain.RiskHigh {
		t.Errorf("risk = %s, want HIGH", fa.Risk)
	}
	if len(fa.Reasons) != 3 {
		t.Errorf("reasons = %v, want all three rules matched", fa.Reasons)
	}
}

func TestDetect_CleanRoundHasNoFlags(t *testing.T) {
	guard := New(DefaultConfig(), nil)

	flags := guard.Detect(
		[]*domain.RewardAllocation{alloc(addr(1), "round-n", 100), alloc(addr(2), "round-n", 100)},
		nil,
	)
	if len(flags) != 0 {
		t.Fatalf("fresh recipients must not flag, got %+v", flags)
	}
}

func TestDetect_DeterministicOrder(t *testing.T) {
	guard := New(DefaultConfig(), nil)

	prior := []storage.PriorPayment{
		paid(addr(3), "r0", 10, 1),
		paid(addr(1), "r0", 10, 1),
		paid(addr(2), "r0", 10, 1),
	}
	allocs := []*domain.RewardAllocation{
		alloc(addr(3), "round-n", 10),
		alloc(addr(1), "round-n", 10),
		alloc(addr(2), "round-n", 10),
	}

	flags := guard.Detect(allocs, prior)
	if len(flags) != 3 {
		t.Fatalf("got %d flags, want 3", len(flags))
	}
	for i := 1; i < len(flags); i++ {
		if !domain.AddressLess(flags[i-1].Address, flags[i].Address) {
			t.Fatal("flags not ordered by address")
		}
	}
}
