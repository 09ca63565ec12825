package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Sweep Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Config: `%s`\n\n", r.RunID, r.ConfigHash))

	sb.WriteString("## Workload\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.Summary.Bars))
	sb.WriteString(fmt.Sprintf("| Parameter Sets | %d |\n", r.Summary.ParamsTotal))
	sb.WriteString(fmt.Sprintf("| Top-K | %d |\n", r.Summary.TopK))
	sb.WriteString(fmt.Sprintf("| Confirmed Results | %d |\n", r.Summary.ResultsTotal))
	sb.WriteString("\n")

	if r.Gate.Action != "" {
		sb.WriteString("## Admission Gate\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Action | %s |\n", r.Gate.Action))
		if r.Gate.MemEstBytes > 0 {
			sb.WriteString(fmt.Sprintf("| Memory Estimate (MB) | %.1f |\n", float64(r.Gate.MemEstBytes)/(1<<20)))
			sb.WriteString(fmt.Sprintf("| Ops Estimate | %d |\n", r.Gate.OpsEst))
			sb.WriteString(fmt.Sprintf("| Subsample Rate | %.4f -> %.4f |\n", r.Gate.OriginalSubsample, r.Gate.FinalSubsample))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Top Results\n\n")
	if len(r.TopResults) > 0 {
		sb.WriteString("| Param | NetProfit | Trades | MaxDD |\n")
		sb.WriteString("|-------|-----------|--------|-------|\n")
		for _, row := range r.TopResults {
			sb.WriteString(fmt.Sprintf("| %d | %.4f | %d | %.4f |\n",
				row.ParamID, row.NetProfit, row.Trades, row.MaxDrawdown))
		}
	} else {
		sb.WriteString("No confirmed results available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
