package fmt

import (
	"fmt"
	"strings"
)

// SprintFloat formats value with at most decimal places, trimming trailing
// zeros and a trailing dot, so axis values stay compact on the wire
// (eg 1.50 -> "1.5", 2.00 -> "2").
func SprintFloat(value float64, decimal uint) string {
	if decimal == 0 {
		return fmt.Sprintf("%.0f", value)
	}
	floatStr := fmt.Sprintf(fmt.Sprintf("%%.%df", decimal), value)
	return strings.TrimRight(strings.TrimRight(floatStr, "0"), ".")
}
