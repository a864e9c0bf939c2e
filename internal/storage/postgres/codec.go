package postgres

import (
	"encoding/json"
	"fmt"
	"math/big"

	"staking-reward-ledger/internal/domain"
)

// Amounts travel to and from Postgres as base-unit decimal strings, rationals
// as "num/den" strings. Text columns keep the full big.Int precision; float
// columns would not.

func encodeAmount(a domain.Amount) string {
	return a.BaseUnits().String()
}

func decodeAmount(s string) (domain.Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return domain.Amount{}, fmt.Errorf("decode amount %q: not a base-unit integer", s)
	}
	return domain.NewAmountFromBig(v), nil
}

func encodeRat(r *big.Rat) string {
	if r == nil {
		return "0/1"
	}
	return r.RatString()
}

func decodeRat(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("decode rational %q", s)
	}
	return r, nil
}

// encodeMultipliers renders category multipliers as a JSON object of
// category -> rational string, for the rounds table's jsonb column.
func encodeMultipliers(m domain.CategoryMultipliers) ([]byte, error) {
	out := make(map[string]string, len(m))
	for c, r := range m {
		out[string(c)] = encodeRat(r)
	}
	return json.Marshal(out)
}

func decodeMultipliers(data []byte) (domain.CategoryMultipliers, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode multipliers: %w", err)
	}
	m := make(domain.CategoryMultipliers, len(raw))
	for c, s := range raw {
		r, err := decodeRat(s)
		if err != nil {
			return nil, fmt.Errorf("decode multiplier for %s: %w", c, err)
		}
		m[domain.Category(c)] = r
	}
	return m, nil
}

// priorPaymentRow is the jsonb shape of one prior-payment reference on a flag.
type priorPaymentRow struct {
	RoundID string `json:"round_id"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func encodePriorPayments(refs []domain.PriorPaymentRef) ([]byte, error) {
	rows := make([]priorPaymentRow, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, priorPaymentRow{
			RoundID: ref.RoundID,
			Address: ref.Address.Hex(),
			Amount:  encodeAmount(ref.Amount),
		})
	}
	return json.Marshal(rows)
}

func decodePriorPayments(data []byte) ([]domain.PriorPaymentRef, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rows []priorPaymentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode prior payments: %w", err)
	}
	refs := make([]domain.PriorPaymentRef, 0, len(rows))
	for _, row := range rows {
		addr, err := domain.ParseAddress(row.Address)
		if err != nil {
			return nil, fmt.Errorf("decode prior payment address: %w", err)
		}
		amount, err := decodeAmount(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("decode prior payment amount: %w", err)
		}
		refs = append(refs, domain.PriorPaymentRef{RoundID: row.RoundID, Address: addr, Amount: amount})
	}
	return refs, nil
}
