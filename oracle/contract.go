package oracle

import (
	"fmt"
	"sort"

	"cosmossdk.io/math"
)

const (
	// DefaultMinSources is the quorum threshold a freshly constructed
	// contract starts with.
	DefaultMinSources uint8 = 3

	nanosPerSecond uint64 = 1_000_000_000
)

// Contract is the oracle state manager. It owns the mapping from source
// label to its latest report, the last-update timestamp, the quorum
// threshold and the owner identity.
//
// The host serializes all calls against one instance, so the contract
// itself carries no locking. Every operation validates its preconditions
// before mutating anything, which makes each call an all-or-nothing
// transition.
type Contract struct {
	owner      string
	prices     map[string]PriceReport
	lastUpdate uint64
	minSources uint8
}

// New constructs a contract owned by the creating account, with an empty
// source map and the default quorum of 3.
func New(env Env) *Contract {
	return &Contract{
		owner:      env.Caller(),
		prices:     make(map[string]PriceReport),
		minSources: DefaultMinSources,
	}
}

// FromState restores a contract from its persisted record.
func FromState(st State) *Contract {
	prices := make(map[string]PriceReport, len(st.Prices))
	for source, report := range st.Prices {
		prices[source] = report
	}

	return &Contract{
		owner:      st.Owner,
		prices:     prices,
		lastUpdate: st.LastUpdate,
		minSources: st.MinSources,
	}
}

// State returns a deep copy of the persisted contract record.
func (c *Contract) State() State {
	prices := make(map[string]PriceReport, len(c.prices))
	for source, report := range c.prices {
		prices[source] = report
	}

	return State{
		Owner:      c.owner,
		Prices:     prices,
		LastUpdate: c.lastUpdate,
		MinSources: c.minSources,
	}
}

// Owner returns the account that instantiated the contract.
func (c *Contract) Owner() string {
	return c.owner
}

// Init overwrites the quorum threshold. Owner only.
func (c *Contract) Init(env Env, minSources uint8) error {
	if env.Caller() != c.owner {
		return ErrUnauthorized
	}

	c.minSources = minSources
	env.Emit(fmt.Sprintf("oracle initialized with min_sources=%d by %s", minSources, env.Caller()))
	return nil
}

// ReportPrice ingests a price report for the given source, unconditionally
// replacing any prior report under the same label. Any account may report
// under any source name. The report timestamp is the host clock truncated
// to whole seconds, and last_update advances to it regardless of how it
// compares to other stored reports.
func (c *Contract) ReportPrice(env Env, source string, priceUSD uint64) {
	timestamp := env.BlockTimestamp() / nanosPerSecond

	c.prices[source] = PriceReport{
		Source:    source,
		PriceUSD:  priceUSD,
		Timestamp: timestamp,
		Reporter:  env.Caller(),
	}
	c.lastUpdate = timestamp

	env.Emit(fmt.Sprintf("price reported: %d USD from %s by %s", priceUSD, source, env.Caller()))
}

// GetPrice returns the aggregated price in micro-dollars: the arithmetic
// mean of all stored reports, truncated toward zero. The summation runs
// over arbitrary-precision integers, so it cannot wrap regardless of
// source count or price magnitude.
//
// Fails with InsufficientSourcesError while fewer than min_sources
// distinct sources are stored; no partial result is returned.
func (c *Contract) GetPrice() (uint64, error) {
	// the second clause guards the zero-divisor case when min_sources
	// was configured to 0
	if len(c.prices) < int(c.minSources) || len(c.prices) == 0 {
		return 0, &InsufficientSourcesError{
			Required: int(c.minSources),
			Actual:   len(c.prices),
		}
	}

	sum := math.ZeroInt()
	for _, report := range c.prices {
		sum = sum.Add(math.NewIntFromUint64(report.PriceUSD))
	}

	// the mean never exceeds the largest stored price, so it fits uint64
	return sum.Quo(math.NewInt(int64(len(c.prices)))).Uint64(), nil
}

// GetPriceDetails returns every currently stored report, one per source,
// ordered by source label for stable output.
func (c *Contract) GetPriceDetails() []PriceReport {
	reports := make([]PriceReport, 0, len(c.prices))
	for _, report := range c.prices {
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Source < reports[j].Source
	})

	return reports
}

// GetSourceCount returns the number of distinct sources currently stored.
func (c *Contract) GetSourceCount() int {
	return len(c.prices)
}

// IsValid reports whether the stored source count meets the quorum.
// Mirrors the GetPrice precondition without triggering its failure.
func (c *Contract) IsValid() bool {
	return len(c.prices) >= int(c.minSources)
}

// GetLastUpdate returns the timestamp of the most recently accepted
// report, or 0 when no report was ever accepted (or prices were cleared).
func (c *Contract) GetLastUpdate() uint64 {
	return c.lastUpdate
}

// GetMinSources returns the current quorum threshold.
func (c *Contract) GetMinSources() uint8 {
	return c.minSources
}

// SetMinSources overwrites the quorum threshold. Owner only.
func (c *Contract) SetMinSources(env Env, minSources uint8) error {
	if env.Caller() != c.owner {
		return ErrUnauthorized
	}

	c.minSources = minSources
	env.Emit(fmt.Sprintf("min_sources set to %d by %s", minSources, env.Caller()))
	return nil
}

// ClearPrices empties the source map and resets last_update to 0.
// Owner only. Destructive, no audit trail beyond the event stream.
func (c *Contract) ClearPrices(env Env) error {
	if env.Caller() != c.owner {
		return ErrUnauthorized
	}

	c.prices = make(map[string]PriceReport)
	c.lastUpdate = 0

	env.Emit(fmt.Sprintf("all prices cleared by %s", env.Caller()))
	return nil
}
