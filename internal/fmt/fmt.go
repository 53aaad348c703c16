package fmt

import (
	"fmt"
	"strings"
)

// SprintFloat formats value with up to decimal places, trimming trailing zeros and
// the decimal point. Suitable for composing G-Code words, where "X10.500" and "X10.5"
// mean the same thing but the shorter form wastes less of the serial RX buffer.
func SprintFloat(value float64, decimal uint) string {
	var floatStr string
	if decimal > 0 {
		floatFormat := fmt.Sprintf("%%.%df", decimal)
		floatStr = fmt.Sprintf(floatFormat, value)
		floatStr = strings.TrimRight(strings.TrimRight(floatStr, "0"), ".")
	} else {
		floatStr = fmt.Sprintf("%.0f", value)
	}
	return floatStr
}

// SprintPercent formats an override percentage.
func SprintPercent(value int) string {
	return fmt.Sprintf("%d%%", value)
}
