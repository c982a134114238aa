package oracle

// PriceReport is the latest observation submitted for a single source.
type PriceReport struct {
	// Source is the price feed label, e.g. "coingecko". Acts as the map key.
	Source string `json:"source" codec:"source"`

	// PriceUSD is the price in micro-dollars (1 unit = 1e-6 USD).
	PriceUSD uint64 `json:"price_usd" codec:"price_usd"`

	// Timestamp is seconds since epoch, derived from the host clock
	// at the moment of ingestion.
	Timestamp uint64 `json:"timestamp" codec:"timestamp"`

	// Reporter is the account that submitted this report.
	Reporter string `json:"reporter" codec:"reporter"`
}

// State is the persisted contract record. It round-trips through the host
// persistence layer, so the field set must stay exactly this.
type State struct {
	Owner      string                 `json:"owner" codec:"owner"`
	Prices     map[string]PriceReport `json:"prices" codec:"prices"`
	LastUpdate uint64                 `json:"last_update" codec:"last_update"`
	MinSources uint8                  `json:"min_sources" codec:"min_sources"`
}
