package util

import (
	"github.com/shopspring/decimal"
)

func MinDecimal(val0 decimal.Decimal, vals ...decimal.Decimal) decimal.Decimal {
	min := val0
	for _, v := range vals {
		if v.LessThan(min) {
			min = v
		}
	}
	return min
}

func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
