package main

import (
	"context"
	"net/http"
	"time"

	"github.com/InjectiveLabs/metrics"
	log "github.com/InjectiveLabs/suplog"
	cli "github.com/jawher/mow.cli"
	"github.com/rs/cors"
	"github.com/xlab/closer"
	"go.uber.org/multierr"

	"github.com/onchainlabs/price-oracle/internal/service/health"
	oracleapi "github.com/onchainlabs/price-oracle/internal/service/oracle"
	contract "github.com/onchainlabs/price-oracle/oracle"
	"github.com/onchainlabs/price-oracle/statestore"
)

// serverCmd action runs the oracle API server
//
// $ price-oracle server
func serverCmd(cmd *cli.Cmd) {
	var (
		listenAddr   *string
		dbPath       *string
		ownerAccount *string

		// Metrics
		statsdPrefix   *string
		statsdAddr     *string
		statsdStuckDur *string
		statsdMocking  *string
		statsdDisabled *string
	)

	initServerOptions(
		cmd,
		&listenAddr,
		&dbPath,
		&ownerAccount,
	)

	initStatsdOptions(
		cmd,
		&statsdPrefix,
		&statsdAddr,
		&statsdStuckDur,
		&statsdMocking,
		&statsdDisabled,
	)

	cmd.Action = func() {
		// ensure a clean exit
		defer closer.Close()

		startMetricsGathering(
			statsdPrefix,
			statsdAddr,
			statsdStuckDur,
			statsdMocking,
			statsdDisabled,
		)

		hub := oracleapi.NewEventHub()

		var store *statestore.Store
		if len(*dbPath) > 0 {
			var err error
			store, err = statestore.Open(*dbPath)
			panicIf(err, "failed to open state store at", *dbPath)
		} else {
			log.Warningln("no db path set, oracle state will not survive a restart")
		}

		var c *contract.Contract
		if store != nil {
			st, err := store.Load()
			panicIf(err, "failed to load oracle state")

			if st != nil {
				c = contract.FromState(*st)
				log.WithFields(log.Fields{
					"owner":       c.Owner(),
					"sources":     c.GetSourceCount(),
					"min_sources": c.GetMinSources(),
				}).Infoln("restored oracle state")
			}
		}

		if c == nil {
			c = contract.New(contract.SystemEnv(*ownerAccount, hub))
			if store != nil {
				panicIf(store.Commit(c.State()), "failed to commit initial oracle state")
			}

			log.WithField("owner", *ownerAccount).Infoln("initialized fresh oracle state")
		}

		apiSvc := oracleapi.NewService(c, store, hub)
		healthSvc := health.NewService(log.DefaultLogger, metrics.Tags{
			"svc": "health",
		})

		mux := http.NewServeMux()
		mux.Handle("/oracle/", apiSvc.Handler())
		mux.HandleFunc("/health", healthSvc.HandleStatus)
		mux.Handle("/metrics", apiSvc.MetricsHandler())

		handlerWithCors := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{
				http.MethodHead,
				http.MethodGet,
				http.MethodPost,
			},
			AllowedHeaders:     []string{"*"},
			AllowCredentials:   false,
			OptionsPassthrough: false,
		})

		httpSrv := &http.Server{
			Addr:    *listenAddr,
			Handler: handlerWithCors.Handler(mux),
		}

		closer.Bind(func() {
			shutdownCtx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelFn()

			err := httpSrv.Shutdown(shutdownCtx)
			hub.Close()

			if store != nil {
				err = multierr.Append(err, store.Close())
			}

			if err != nil {
				log.WithError(err).Warningln("shutdown finished with errors")
			}
		})

		log.Infof("price oracle API starts listening on %s", *listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatalln("failed to start HTTP server")
		}
	}
}
