package report

import (
	"fmt"
	"strings"
)

// FormatText renders r as a short plain-text summary: site count, overall
// risk, one line per site, and the detected pattern histogram. Used by the
// CLI's non-JSON output path.
func FormatText(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "delegatecall sites: %d\n", r.DelegatecallCount)
	if r.OverallRisk != "" {
		fmt.Fprintf(&b, "overall risk: %s\n", r.OverallRisk)
	}

	for _, s := range r.Sites {
		line := fmt.Sprintf("  pc=%-6d risk=%-8s type=%-10s", s.PC, s.Risk, s.Classification.Type)
		if s.Pattern != nil {
			line += fmt.Sprintf(" pattern=%s", s.Pattern.Name)
		}
		if s.Classification.AddressLiteral != "" {
			line += fmt.Sprintf(" address=%s", s.Classification.AddressLiteral)
		} else if s.Classification.StorageSlotLiteral != "" {
			line += fmt.Sprintf(" slot=%s", s.Classification.StorageSlotLiteral)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if len(r.ProxiesDetected) > 0 {
		b.WriteString("patterns detected:\n")
		for _, p := range r.ProxiesDetected {
			fmt.Fprintf(&b, "  %s x%d\n", p.Name, p.Count)
		}
	}

	return b.String()
}
