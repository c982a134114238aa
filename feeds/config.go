package feeds

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// FeedConfig describes one reporting source: where to pull the price
// from and under which source label to report it.
type FeedConfig struct {
	// Source is the oracle source label, e.g. "binance".
	Source string `toml:"source"`

	// Symbol is the provider-specific ticker symbol, e.g. "NEARUSDT".
	Symbol string `toml:"symbol"`

	// URL is the ticker endpoint, expected to answer with a JSON body
	// containing symbol and price fields.
	URL string `toml:"url"`

	// PullInterval is a duration string, e.g. "60s". Defaults to 1m.
	PullInterval string `toml:"pullInterval"`
}

// ParseFeedConfig reads and validates a TOML feed definition.
func ParseFeedConfig(body []byte) (*FeedConfig, error) {
	var config FeedConfig
	if err := toml.Unmarshal(body, &config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal TOML config")
	}

	if config.Source == "" {
		return nil, errors.New("feed config: source is required")
	}
	if config.URL == "" {
		return nil, errors.New("feed config: url is required")
	}
	if config.Symbol == "" {
		return nil, errors.New("feed config: symbol is required")
	}

	return &config, nil
}

// Hash identifies a feed config revision in logs.
func (c *FeedConfig) Hash() string {
	h := sha256.New()

	_, _ = h.Write([]byte(c.Source))
	_, _ = h.Write([]byte(c.Symbol))
	_, _ = h.Write([]byte(c.URL))

	return hex.EncodeToString(h.Sum(nil))
}
