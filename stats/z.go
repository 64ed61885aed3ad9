package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	area := (1 + (confidenceInterval / 100)) / 2
	zValue := dist.Quantile(area)
	return zValue
}

// ProportionInterval returns the share of hits among n trials and the
// half-width of its normal-approximation confidence interval.
func ProportionInterval(hits, n int, confidenceInterval float64) (p, halfWidth float64) {
	if n == 0 {
		return 0, 0
	}
	p = float64(hits) / float64(n)
	halfWidth = ZVal(confidenceInterval) * math.Sqrt(p*(1-p)/float64(n))
	return p, halfWidth
}
