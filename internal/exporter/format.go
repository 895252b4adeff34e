package exporter

import (
	"fmt"
	"math"
)

// formatFloat formats a float64 for CSV output with exactly 2 decimal
// places, so values like 13.4 appear as 13.40. An undefined (NaN) cell
// renders empty.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return fmt.Sprintf("%.2f", f)
}

// formatFloat4 formats with 4 decimal places, used for the ratio-scale
// features (concentration, logs) whose spread lives past 2 decimals.
func formatFloat4(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return fmt.Sprintf("%.4f", f)
}

// formatRank renders a rank as a whole number; defined ranks are always
// integral, missing ranks render empty.
func formatRank(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return fmt.Sprintf("%.0f", f)
}

// formatInt formats an int64 value for CSV output.
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

// formatBool formats a boolean value for CSV output.
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
