package feeds

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/InjectiveLabs/metrics"
	log "github.com/InjectiveLabs/suplog"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	null "gopkg.in/guregu/null.v4"
)

// PricePuller pulls the current price of a symbol from an external
// provider, to be reported under a fixed oracle source label.
type PricePuller interface {
	Source() string
	Symbol() string
	Interval() time.Duration

	PullPrice(ctx context.Context) (price decimal.Decimal, err error)
}

const (
	maxRespTime        = 15 * time.Second
	maxRespHeadersTime = 15 * time.Second
	maxRespBytes       = 10 * 1024 * 1024

	defaultPullInterval = 1 * time.Minute
	minPullInterval     = 1 * time.Second
)

var zeroPrice = decimal.Decimal{}

var _ PricePuller = &httpPriceFeed{}

// NewHTTPPriceFeed returns a price puller for the given feed config. The
// price is pulled from the configured ticker endpoint; the symbol name
// reported by the endpoint must match the requested one.
func NewHTTPPriceFeed(cfg *FeedConfig) (PricePuller, error) {
	pullInterval := defaultPullInterval
	if len(cfg.PullInterval) > 0 {
		interval, err := time.ParseDuration(cfg.PullInterval)
		if err != nil {
			err = errors.Wrapf(err, "failed to parse pull interval: %s (expected format: 60s)", cfg.PullInterval)
			return nil, err
		}

		if interval < minPullInterval {
			return nil, errors.Errorf("pull interval too small: %s (minimum interval = 1s)", cfg.PullInterval)
		}

		pullInterval = interval
	}

	return &httpPriceFeed{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: maxRespHeadersTime,
			},
			Timeout: maxRespTime,
		},

		source:   cfg.Source,
		symbol:   cfg.Symbol,
		endpoint: cfg.URL,
		interval: pullInterval,

		logger: log.WithFields(log.Fields{
			"svc":    "feeds",
			"source": cfg.Source,
		}),
		svcTags: metrics.Tags{
			"provider": cfg.Source,
		},
	}, nil
}

type httpPriceFeed struct {
	client *http.Client

	source   string
	symbol   string
	endpoint string
	interval time.Duration

	logger  log.Logger
	svcTags metrics.Tags
}

func (f *httpPriceFeed) Source() string {
	return f.source
}

func (f *httpPriceFeed) Symbol() string {
	return f.symbol
}

func (f *httpPriceFeed) Interval() time.Duration {
	return f.interval
}

type tickerResp struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`

	// some providers attach a server timestamp, unused but tolerated
	Time null.Int `json:"time"`
}

func (f *httpPriceFeed) PullPrice(ctx context.Context) (
	price decimal.Decimal,
	err error,
) {
	metrics.ReportFuncCall(f.svcTags)
	doneFn := metrics.ReportFuncTiming(f.svcTags)
	defer doneFn()

	u, err := url.ParseRequestURI(f.endpoint)
	if err != nil {
		metrics.ReportFuncError(f.svcTags)
		return zeroPrice, errors.Wrapf(err, "failed to parse feed URL %s", f.endpoint)
	}

	q := u.Query()
	q.Set("symbol", f.symbol)
	u.RawQuery = q.Encode()
	reqURL := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.ReportFuncError(f.svcTags)
		return zeroPrice, errors.Wrap(err, "failed to create HTTP request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ReportFuncError(f.svcTags)
		err = errors.Wrapf(err, "failed to fetch price from %s", reqURL)
		return zeroPrice, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxRespBytes))
	if err != nil {
		metrics.ReportFuncError(f.svcTags)
		err = errors.Wrapf(err, "failed to read response body from %s", reqURL)
		return zeroPrice, err
	}

	var priceResp tickerResp
	if err = json.Unmarshal(respBody, &priceResp); err != nil {
		metrics.ReportFuncError(f.svcTags)
		err = errors.Wrapf(err, "failed to unmarshal response body for %s", f.symbol)
		f.logger.WithField("url", reqURL).Warningln(string(respBody))
		return zeroPrice, err
	} else if priceResp.Symbol != f.symbol {
		metrics.ReportFuncError(f.svcTags)
		err = errors.Errorf("symbol name in response doesn't match requested: %s (resp) != %s (req)", priceResp.Symbol, f.symbol)
		return zeroPrice, err
	}

	if priceResp.Price.IsZero() {
		f.logger.Warningf("price for [%s] fetched as zero!", f.symbol)
		return zeroPrice, nil
	}

	return priceResp.Price, nil
}
