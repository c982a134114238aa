package oracle

import (
	"sort"

	"cosmossdk.io/math"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the currently stored reports for diagnostics. Unlike
// GetPrice it never fails on quorum: an invalid oracle can still be
// inspected. MeanUSD is the same truncated integer mean GetPrice would
// return; Median and StdDev are float64 approximations over the raw
// prices.
type Stats struct {
	Sources int     `json:"sources"`
	MinUSD  uint64  `json:"min_usd"`
	MaxUSD  uint64  `json:"max_usd"`
	MeanUSD uint64  `json:"mean_usd"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
}

// Stats computes summary statistics over all stored reports. Zero value
// when no reports are stored.
func (c *Contract) Stats() Stats {
	if len(c.prices) == 0 {
		return Stats{}
	}

	st := Stats{
		Sources: len(c.prices),
		MinUSD:  ^uint64(0),
	}

	prices := make([]float64, 0, len(c.prices))
	sum := math.ZeroInt()

	for _, report := range c.prices {
		prices = append(prices, float64(report.PriceUSD))
		sum = sum.Add(math.NewIntFromUint64(report.PriceUSD))

		if report.PriceUSD < st.MinUSD {
			st.MinUSD = report.PriceUSD
		}
		if report.PriceUSD > st.MaxUSD {
			st.MaxUSD = report.PriceUSD
		}
	}

	st.MeanUSD = sum.Quo(math.NewInt(int64(len(prices)))).Uint64()

	sort.Float64s(prices)
	st.Median = stat.Quantile(0.5, stat.Empirical, prices, nil)
	if len(prices) > 1 {
		st.StdDev = stat.StdDev(prices, nil)
	}

	return st
}
