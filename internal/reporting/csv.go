package reporting

import (
	"fmt"
	"strings"
)

// RenderAllocationsCSV renders a round's allocations as CSV string.
// One row per allocation, full payment reference included: this is the file
// handed to the payout operator.
func RenderAllocationsCSV(r *RoundReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("round_id,address,amount_tokens,amount_base_units,status,payment_ref\n")

	// Rows
	for _, a := range r.Allocations {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s\n",
			r.RoundID,
			a.Address.Hex(),
			a.Amount,
			a.Amount.BaseUnits().String(),
			a.Status,
			a.PaymentRef,
		))
	}

	return sb.String()
}
