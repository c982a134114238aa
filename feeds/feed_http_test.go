package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTickerServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestHTTPPriceFeedPullPrice(t *testing.T) {
	srv := newTickerServer(t, `{"symbol":"NEARUSDT","price":"5.25","time":1737468044000}`)

	feed, err := NewHTTPPriceFeed(&FeedConfig{
		Source: "binance",
		Symbol: "NEARUSDT",
		URL:    srv.URL,
	})
	require.NoError(t, err)

	assert.Equal(t, "binance", feed.Source())
	assert.Equal(t, "NEARUSDT", feed.Symbol())
	assert.Equal(t, defaultPullInterval, feed.Interval())

	price, err := feed.PullPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5.25", price.String())
}

func TestHTTPPriceFeedSymbolMismatch(t *testing.T) {
	srv := newTickerServer(t, `{"symbol":"BTCUSDT","price":"64000.1"}`)

	feed, err := NewHTTPPriceFeed(&FeedConfig{
		Source: "binance",
		Symbol: "NEARUSDT",
		URL:    srv.URL,
	})
	require.NoError(t, err)

	price, err := feed.PullPrice(context.Background())
	require.Error(t, err)
	assert.True(t, price.IsZero())
}

func TestHTTPPriceFeedZeroPrice(t *testing.T) {
	srv := newTickerServer(t, `{"symbol":"NEARUSDT","price":"0"}`)

	feed, err := NewHTTPPriceFeed(&FeedConfig{
		Source: "binance",
		Symbol: "NEARUSDT",
		URL:    srv.URL,
	})
	require.NoError(t, err)

	price, err := feed.PullPrice(context.Background())
	require.NoError(t, err)
	assert.True(t, price.IsZero())
}

func TestHTTPPriceFeedBadBody(t *testing.T) {
	srv := newTickerServer(t, `<html>rate limited</html>`)

	feed, err := NewHTTPPriceFeed(&FeedConfig{
		Source: "binance",
		Symbol: "NEARUSDT",
		URL:    srv.URL,
	})
	require.NoError(t, err)

	_, err = feed.PullPrice(context.Background())
	require.Error(t, err)
}

func TestNewHTTPPriceFeedIntervals(t *testing.T) {
	cfg := &FeedConfig{
		Source:       "binance",
		Symbol:       "NEARUSDT",
		URL:          "https://api.binance.com/api/v3/ticker/price",
		PullInterval: "90s",
	}

	feed, err := NewHTTPPriceFeed(cfg)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, feed.Interval())

	cfg.PullInterval = "oops"
	_, err = NewHTTPPriceFeed(cfg)
	require.Error(t, err)

	cfg.PullInterval = "100ms"
	_, err = NewHTTPPriceFeed(cfg)
	require.Error(t, err)
}
