package feeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedConfig(t *testing.T) {
	cfg, err := ParseFeedConfig([]byte(`
source = "binance"
symbol = "NEARUSDT"
url = "https://api.binance.com/api/v3/ticker/price"
pullInterval = "1m"
`))
	require.NoError(t, err)

	assert.Equal(t, "binance", cfg.Source)
	assert.Equal(t, "NEARUSDT", cfg.Symbol)
	assert.Equal(t, "https://api.binance.com/api/v3/ticker/price", cfg.URL)
	assert.Equal(t, "1m", cfg.PullInterval)
	assert.NotEmpty(t, cfg.Hash())
}

func TestParseFeedConfigMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "no source",
			body: `
symbol = "NEARUSDT"
url = "https://api.binance.com/api/v3/ticker/price"
`,
		},
		{
			name: "no symbol",
			body: `
source = "binance"
url = "https://api.binance.com/api/v3/ticker/price"
`,
		},
		{
			name: "no url",
			body: `
source = "binance"
symbol = "NEARUSDT"
`,
		},
		{
			name: "not toml",
			body: `{"source": "binance"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseFeedConfig([]byte(tc.body))
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestFeedConfigHashChangesWithContent(t *testing.T) {
	a := &FeedConfig{Source: "binance", Symbol: "NEARUSDT", URL: "https://a.example"}
	b := &FeedConfig{Source: "binance", Symbol: "NEARUSDT", URL: "https://b.example"}

	assert.NotEqual(t, a.Hash(), b.Hash())
}
