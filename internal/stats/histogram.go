package stats

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// maxAdaptiveBins caps the square-root rule.
const maxAdaptiveBins = 20

// HistogramOptions selects the bin count and label precision. Bins <= 0
// picks min(20, ceil(sqrt(n))). Fixed pads labels to exactly Decimals
// places; otherwise trailing zeros are trimmed.
type HistogramOptions struct {
	Bins     int  `json:"bins" yaml:"bins"`
	Decimals int  `json:"decimals" yaml:"decimals"`
	Fixed    bool `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

var (
	// GeneralHistogram matches the data utility: 20 bins, labels to 2 places.
	GeneralHistogram = HistogramOptions{Bins: 20, Decimals: 2}
	// ChartHistogram matches the chart view: adaptive bins, labels fixed at 1 place.
	ChartHistogram = HistogramOptions{Bins: 0, Decimals: 1, Fixed: true}
)

// Bin is one labeled bucket.
type Bin struct {
	Label     string  `json:"label"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Frequency int     `json:"frequency"`
}

// Histogram buckets the finite values into equal-width bins spanning
// [min, max]. The maximum lands in the last bin.
func Histogram(values []float64, opt HistogramOptions) []Bin {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return []Bin{}
	}
	count := opt.Bins
	if count <= 0 {
		count = AdaptiveBinCount(len(finite))
	}
	lo, hi := floats.Min(finite), floats.Max(finite)
	width := (hi - lo) / float64(count)

	bins := make([]Bin, count)
	for i := range bins {
		start := lo + float64(i)*width
		end := start + width
		bins[i] = Bin{
			Label: formatEdge(start, opt.Decimals, opt.Fixed) + "-" + formatEdge(end, opt.Decimals, opt.Fixed),
			Lower: start,
			Upper: end,
		}
	}
	for _, v := range finite {
		bins[binIndex(v, lo, width, count)].Frequency++
	}
	return bins
}

// AdaptiveBinCount returns min(20, ceil(sqrt(n))), at least 1.
func AdaptiveBinCount(n int) int {
	c := int(math.Ceil(math.Sqrt(float64(n))))
	if c > maxAdaptiveBins {
		c = maxAdaptiveBins
	}
	if c < 1 {
		c = 1
	}
	return c
}

func binIndex(v, lo, width float64, count int) int {
	if width == 0 {
		return 0
	}
	i := math.Floor((v - lo) / width)
	switch {
	case i < 0:
		return 0
	case i > float64(count-1):
		return count - 1
	}
	return int(i)
}

// formatEdge rounds half up, matching Math.round. Unless fixed, trailing
// zeros are trimmed.
func formatEdge(x float64, decimals int, fixed bool) string {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow(10, float64(decimals))
	r := math.Floor(x*p+0.5) / p
	if r == 0 {
		r = 0 // drop negative zero
	}
	if fixed {
		return strconv.FormatFloat(r, 'f', decimals, 64)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
