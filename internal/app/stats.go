package app

import (
	"strconv"

	"review_proxy/internal/domain"
)

// computeStats expects ratings already clamped to 1..5.
func computeStats(ratings []int) domain.Stats {
	st := domain.Stats{
		Average:      "0.0",
		Count:        len(ratings),
		Distribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
	}
	if len(ratings) == 0 {
		return st
	}
	sum := 0
	for _, r := range ratings {
		sum += r
		st.Distribution[strconv.Itoa(r)]++
	}
	st.Average = averageOneDecimal(sum, len(ratings))
	return st
}

// averageOneDecimal rounds sum/n half up to one decimal in integer math, so
// 4.25 is "4.3" rather than the float formatter's round-half-even "4.2".
func averageOneDecimal(sum, n int) string {
	tenths := (sum*20/n + 1) / 2
	return strconv.Itoa(tenths/10) + "." + strconv.Itoa(tenths%10)
}
