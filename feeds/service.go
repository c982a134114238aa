// Package feeds runs the reporter side of the oracle: it pulls prices
// from configured provider endpoints on an interval and submits them as
// report_price calls, one source label per feed.
package feeds

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/InjectiveLabs/metrics"
	log "github.com/InjectiveLabs/suplog"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Service interface {
	Start() error
	Close()
}

// PriceData is one pulled observation on its way to submission.
type PriceData struct {
	Source    string
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

const (
	initialPullDelay      = 5 * time.Second
	maxRetriesPerInterval = 3
	maxSubmitRetries      = 5
	submitTimeout         = 15 * time.Second
)

type reporterSvc struct {
	client  *Client
	pullers map[string]PricePuller

	closeOnce sync.Once
	closeC    chan struct{}

	logger  log.Logger
	svcTags metrics.Tags
}

func NewService(client *Client, feedConfigs []*FeedConfig) (Service, error) {
	svc := &reporterSvc{
		client:  client,
		pullers: make(map[string]PricePuller, len(feedConfigs)),
		closeC:  make(chan struct{}),

		logger: log.WithField("svc", "feeds"),
		svcTags: metrics.Tags{
			"svc": "feeds",
		},
	}

	for _, feedCfg := range feedConfigs {
		pricePuller, err := NewHTTPPriceFeed(feedCfg)
		if err != nil {
			err = errors.Wrapf(err, "failed to init price feed for source %s", feedCfg.Source)
			return nil, err
		}
		svc.pullers[feedCfg.Source] = pricePuller
	}

	svc.logger.Infof("initialized %d price pullers", len(svc.pullers))
	return svc, nil
}

func (s *reporterSvc) Start() (err error) {
	defer s.panicRecover(&err)

	if len(s.pullers) == 0 {
		return errors.New("no price feeds configured")
	}

	s.logger.Infoln("starting pullers for", len(s.pullers), "feeds")

	dataC := make(chan *PriceData, len(s.pullers))
	for _, pricePuller := range s.pullers {
		go s.processFeed(pricePuller, dataC)
	}

	s.submitReports(dataC)
	return
}

func (s *reporterSvc) processFeed(pricePuller PricePuller, dataC chan<- *PriceData) {
	feedLogger := s.logger.WithFields(log.Fields{
		"source": pricePuller.Source(),
		"symbol": pricePuller.Symbol(),
	})

	t := time.NewTimer(initialPullDelay)
	defer t.Stop()

	for {
		select {
		case <-s.closeC:
			return

		case <-t.C:
			ctx, cancelFn := context.WithTimeout(context.Background(), maxRespTime)
			price, err := pricePuller.PullPrice(ctx)
			cancelFn()

			if err != nil {
				metrics.ReportFuncError(s.svcTags)
				feedLogger.WithError(err).Warningln("retrying PullPrice after error")

				for i := 0; i < maxRetriesPerInterval; i++ {
					retryCtx, cancelRetry := context.WithTimeout(context.Background(), maxRespTime)
					price, err = pricePuller.PullPrice(retryCtx)
					cancelRetry()
					if err == nil {
						break
					}
					time.Sleep(time.Second)
				}

				if err != nil {
					metrics.ReportFuncError(s.svcTags)
					feedLogger.WithFields(log.Fields{
						"retries": maxRetriesPerInterval,
					}).WithError(err).Errorln("failed to fetch price")

					t.Reset(pricePuller.Interval())
					continue
				}
			}

			if price.IsZero() || price.IsNegative() {
				feedLogger.Debugln("got negative or zero price, skipping")
				t.Reset(pricePuller.Interval())
				continue
			}

			dataC <- &PriceData{
				Source:    pricePuller.Source(),
				Symbol:    pricePuller.Symbol(),
				Price:     price,
				Timestamp: time.Now().UTC(),
			}

			t.Reset(pricePuller.Interval())
		}
	}
}

func (s *reporterSvc) submitReports(dataC <-chan *PriceData) {
	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    time.Minute,
		Factor: 2,
		Jitter: true,
	}

	for {
		select {
		case <-s.closeC:
			s.logger.Infoln("stopping report submission")
			return

		case priceData := <-dataC:
			submitLogger := s.logger.WithFields(log.Fields{
				"source": priceData.Source,
				"price":  priceData.Price.String(),
			})

			var submitted bool
			for attempt := 0; attempt < maxSubmitRetries; attempt++ {
				ctx, cancelFn := context.WithTimeout(context.Background(), submitTimeout)
				err := s.client.ReportPrice(ctx, priceData.Source, priceData.Price)
				cancelFn()

				if err == nil {
					submitted = true
					b.Reset()
					break
				}

				metrics.ReportFuncError(s.svcTags)
				submitLogger.WithError(err).Warningln("retrying report_price after error")

				select {
				case <-s.closeC:
					return
				case <-time.After(b.Duration()):
				}
			}

			if !submitted {
				submitLogger.WithField("retries", maxSubmitRetries).Errorln("dropping report after failed submissions")
				continue
			}

			submitLogger.Debugln("report submitted")
		}
	}
}

func (s *reporterSvc) panicRecover(err *error) {
	if r := recover(); r != nil {
		*err = errors.Errorf("%v", r)

		if e, ok := r.(error); ok {
			s.logger.WithError(e).Errorln("service main loop panicked with an error")
			s.logger.Debugln(string(debug.Stack()))
		} else {
			s.logger.Errorln(r)
		}
	}
}

func (s *reporterSvc) Close() {
	s.closeOnce.Do(func() {
		close(s.closeC)
	})
}
