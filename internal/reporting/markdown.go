package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a round report as Markdown string.
func RenderMarkdown(r *RoundReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Distribution Round %s\n\n", r.RoundID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Period: %s .. %s | Status: %s\n\n",
		r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02"), r.Status))

	// Category breakdown
	sb.WriteString("## Categories\n\n")
	if r.Categories.Total > 0 {
		sb.WriteString("| Category | Count |\n")
		sb.WriteString("|----------|-------|\n")
		sb.WriteString(fmt.Sprintf("| PERFECT | %d |\n", r.Categories.Perfect))
		sb.WriteString(fmt.Sprintf("| MISSED_PURCHASE | %d |\n", r.Categories.MissedPurchase))
		sb.WriteString(fmt.Sprintf("| SOLD_TOKEN | %d |\n", r.Categories.SoldToken))
		sb.WriteString(fmt.Sprintf("| TRANSFERRED | %d |\n", r.Categories.Transferred))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Participants: %d | Eligible: %d (%.1f%%) | Amnesty candidates: %d | Blocked: %d\n\n",
			r.Categories.Total, r.Categories.EligibleCount, r.Categories.EligibleRate*100,
			r.Categories.AmnestyCandidates, r.Categories.Blocked))
	} else {
		sb.WriteString("No classified participants recorded.\n\n")
	}

	// Pool accounting
	sb.WriteString("## Pool\n\n")
	sb.WriteString("| Metric | Tokens |\n")
	sb.WriteString("|--------|--------|\n")
	sb.WriteString(fmt.Sprintf("| Total Pool | %s |\n", r.Pool.TotalPool))
	sb.WriteString(fmt.Sprintf("| Distributed | %s |\n", r.Pool.Distributed))
	sb.WriteString(fmt.Sprintf("| Excluded | %s |\n", r.Pool.Excluded))
	sb.WriteString("\n")

	// Allocations
	sb.WriteString("## Allocations\n\n")
	if len(r.Allocations) > 0 {
		sb.WriteString("| Address | Amount | Status | Payment Ref |\n")
		sb.WriteString("|---------|--------|--------|-------------|\n")
		for _, a := range r.Allocations {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				a.Address.Hex(), a.Amount, a.Status, shortRef(a.PaymentRef)))
		}
	} else {
		sb.WriteString("No allocations committed.\n")
	}
	sb.WriteString("\n")

	// Flags
	sb.WriteString("## Duplicate Flags\n\n")
	if len(r.Flags) > 0 {
		sb.WriteString("| Address | Risk | Reasons | Decision | Decided By |\n")
		sb.WriteString("|---------|------|---------|----------|------------|\n")
		for _, f := range r.Flags {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				f.Address.Hex(), f.Risk, strings.Join(f.Reasons, ", "), f.Decision, f.DecidedBy))
		}
	} else {
		sb.WriteString("No duplicate flags raised.\n")
	}
	sb.WriteString("\n")

	// Amnesties
	sb.WriteString("## Amnesty Grants\n\n")
	if len(r.Amnesties) > 0 {
		sb.WriteString("| Address | Operator | Reason |\n")
		sb.WriteString("|---------|----------|--------|\n")
		for _, a := range r.Amnesties {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", a.Address.Hex(), a.Operator, a.Reason))
		}
	} else {
		sb.WriteString("No amnesty grants issued.\n")
	}
	sb.WriteString("\n")

	// Audit trail
	if len(r.AuditTrail) > 0 {
		sb.WriteString("## Audit Trail\n\n")
		sb.WriteString("| Time | Event | Actor | Detail |\n")
		sb.WriteString("|------|-------|-------|--------|\n")
		for _, e := range r.AuditTrail {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				e.At.Format(time.RFC3339), e.Kind, e.Actor, e.Detail))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// shortRef truncates a payment reference for table display.
func shortRef(ref string) string {
	if len(ref) > 16 {
		return ref[:16]
	}
	return ref
}
