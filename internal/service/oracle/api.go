// Package oracle implements the HTTP JSON API surface of the price oracle
// contract. The server is the execution host here: it resolves the caller
// identity and the block timestamp for every call, serializes calls
// against the single contract instance, and commits state after each
// successful write.
package oracle

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/InjectiveLabs/metrics"
	log "github.com/InjectiveLabs/suplog"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	uuid "github.com/satori/go.uuid"

	contract "github.com/onchainlabs/price-oracle/oracle"
	"github.com/onchainlabs/price-oracle/statestore"
)

// Service exposes the contract operation surface over HTTP.
type Service struct {
	// the host serializes all calls against one contract instance
	mu  sync.Mutex
	c   *contract.Contract
	st  *statestore.Store // nil runs the contract without persistence
	hub *EventHub
	now func() uint64 // host clock, nanoseconds

	registry        *prometheus.Registry
	reportsAccepted prometheus.Counter
	sourceCount     prometheus.Gauge

	logger  log.Logger
	svcTags metrics.Tags
}

func NewService(c *contract.Contract, st *statestore.Store, hub *EventHub) *Service {
	s := &Service{
		c:   c,
		st:  st,
		hub: hub,
		now: func() uint64 { return uint64(time.Now().UnixNano()) },

		registry: prometheus.NewRegistry(),
		reportsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oracle_reports_accepted_total",
			Help: "Number of accepted report_price calls.",
		}),
		sourceCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_source_count",
			Help: "Number of distinct sources currently stored.",
		}),

		logger: log.WithField("svc", "oracle_api"),
		svcTags: metrics.Tags{
			"svc": "oracle_api",
		},
	}

	s.registry.MustRegister(s.reportsAccepted, s.sourceCount)
	s.sourceCount.Set(float64(c.GetSourceCount()))

	return s
}

// Handler returns the API routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oracle/call", s.handleCall)
	mux.HandleFunc("/oracle/price", s.handleGetPrice)
	mux.HandleFunc("/oracle/details", s.handleGetDetails)
	mux.HandleFunc("/oracle/validity", s.handleGetValidity)
	mux.HandleFunc("/oracle/stats", s.handleGetStats)
	mux.HandleFunc("/oracle/events", s.hub.HandleSubscribe)
	return mux
}

// MetricsHandler returns the prometheus exposition endpoint.
func (s *Service) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

type callRequest struct {
	Caller string                 `json:"caller"`
	Method string                 `json:"method"`
	Args   map[string]interface{} `json:"args"`
}

type initArgs struct {
	MinSources *uint8 `mapstructure:"min_sources"`
}

type reportPriceArgs struct {
	Source   string `mapstructure:"source"`
	PriceUSD string `mapstructure:"price_usd"`
	Price    string `mapstructure:"price"`
}

type setMinSourcesArgs struct {
	MinSources *uint8 `mapstructure:"min_sources"`
}

func (s *Service) handleCall(w http.ResponseWriter, r *http.Request) {
	metrics.ReportFuncCall(s.svcTags)
	doneFn := metrics.ReportFuncTiming(s.svcTags)
	defer doneFn()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "POST only", nil)
		return
	}

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ReportFuncError(s.svcTags)
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body", nil)
		return
	}

	reqLogger := s.logger.WithFields(log.Fields{
		"request_id": uuid.NewV4().String(),
		"method":     req.Method,
		"caller":     req.Caller,
	})

	result, err := s.dispatch(&req)
	if err != nil {
		metrics.ReportFuncError(s.svcTags)
		reqLogger.WithError(err).Warningln("call failed")
		writeCallError(w, err)
		return
	}

	reqLogger.Debugln("call succeeded")
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) dispatch(req *callRequest) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := contract.CallEnv{
		Account:   req.Caller,
		Timestamp: s.now(),
		Events:    s.hub,
	}

	switch req.Method {
	case "init":
		var args initArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		minSources := contract.DefaultMinSources
		if args.MinSources != nil {
			minSources = *args.MinSources
		}
		return okResult, s.applyWrite(req, func() error {
			return s.c.Init(env, minSources)
		})

	case "report_price":
		var args reportPriceArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		if args.Source == "" {
			return nil, badRequestf("source must not be empty")
		}
		priceUSD, err := parseMicroUSD(args.PriceUSD, args.Price)
		if err != nil {
			return nil, err
		}
		err = s.applyWrite(req, func() error {
			s.c.ReportPrice(env, args.Source, priceUSD)
			return nil
		})
		if err == nil {
			s.reportsAccepted.Inc()
		}
		return okResult, err

	case "set_min_sources":
		var args setMinSourcesArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		if args.MinSources == nil {
			return nil, badRequestf("min_sources is required")
		}
		return okResult, s.applyWrite(req, func() error {
			return s.c.SetMinSources(env, *args.MinSources)
		})

	case "clear_prices":
		return okResult, s.applyWrite(req, func() error {
			return s.c.ClearPrices(env)
		})

	case "get_price":
		price, err := s.c.GetPrice()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"price_usd": price}, nil

	case "get_price_details":
		return map[string]interface{}{"reports": s.c.GetPriceDetails()}, nil

	case "get_source_count":
		return map[string]interface{}{"count": s.c.GetSourceCount()}, nil

	case "is_valid":
		return map[string]interface{}{"valid": s.c.IsValid()}, nil

	case "get_last_update":
		return map[string]interface{}{"last_update": s.c.GetLastUpdate()}, nil

	case "get_min_sources":
		return map[string]interface{}{"min_sources": s.c.GetMinSources()}, nil

	default:
		return nil, badRequestf("unknown method: %s", req.Method)
	}
}

var okResult = map[string]interface{}{"ok": true}

// applyWrite runs a mutating call and commits the resulting state. When
// the commit fails the in-memory contract is rolled back to the snapshot
// taken before the call, so a failed call never leaves partial state.
func (s *Service) applyWrite(req *callRequest, mutate func() error) error {
	if req.Caller == "" {
		return badRequestf("caller is required for %s", req.Method)
	}

	prev := s.c.State()

	if err := mutate(); err != nil {
		return err
	}

	if s.st != nil {
		if err := s.st.Commit(s.c.State()); err != nil {
			s.c = contract.FromState(prev)
			return errors.Wrap(err, "state commit failed")
		}
	}

	s.sourceCount.Set(float64(s.c.GetSourceCount()))
	return nil
}

func (s *Service) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	metrics.ReportFuncCall(s.svcTags)

	s.mu.Lock()
	price, err := s.c.GetPrice()
	s.mu.Unlock()

	if err != nil {
		writeCallError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"price_usd": price})
}

func (s *Service) handleGetDetails(w http.ResponseWriter, r *http.Request) {
	metrics.ReportFuncCall(s.svcTags)

	s.mu.Lock()
	resp := map[string]interface{}{
		"reports":      s.c.GetPriceDetails(),
		"source_count": s.c.GetSourceCount(),
		"last_update":  s.c.GetLastUpdate(),
		"min_sources":  s.c.GetMinSources(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleGetValidity(w http.ResponseWriter, r *http.Request) {
	metrics.ReportFuncCall(s.svcTags)

	s.mu.Lock()
	resp := map[string]interface{}{
		"valid":        s.c.IsValid(),
		"source_count": s.c.GetSourceCount(),
		"min_sources":  s.c.GetMinSources(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleGetStats(w http.ResponseWriter, r *http.Request) {
	metrics.ReportFuncCall(s.svcTags)

	s.mu.Lock()
	stats := s.c.Stats()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

func decodeArgs(raw map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return errors.Wrap(err, "failed to build args decoder")
	}

	if err := dec.Decode(raw); err != nil {
		return badRequestf("malformed args: %v", err)
	}

	return nil
}
