// Package format renders dashboard figures in the pt-BR style used by the
// headline metrics.
package format

import (
	"fmt"
	"strings"
)

// Number scales value into thousands ("mil") or millions ("milhões") and
// prints two decimals, optionally after a currency prefix:
//
//	Number(500, "")        == "500.00"
//	Number(2500, "R$")     == "R$ 2.50 mil"
//	Number(2500000, "R$")  == "R$ 2.50 milhões"
func Number(value float64, prefix string) string {
	unit := ""
	switch {
	case value < 1000:
	case value < 1000*1000:
		value /= 1000
		unit = "mil"
	default:
		value /= 1000 * 1000
		unit = "milhões"
	}
	return join(prefix, fmt.Sprintf("%.2f", value), unit)
}

func join(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
