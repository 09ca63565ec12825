package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the results table as a CSV string.
func RenderCSV(rows []ResultRow) string {
	var sb strings.Builder

	sb.WriteString("param_id,net_profit,trades,max_drawdown\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%d,%.6f\n",
			r.ParamID, r.NetProfit, r.Trades, r.MaxDrawdown))
	}

	return sb.String()
}
