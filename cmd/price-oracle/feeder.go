package main

import (
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/InjectiveLabs/suplog"
	cli "github.com/jawher/mow.cli"
	"github.com/pkg/errors"
	"github.com/xlab/closer"

	"github.com/onchainlabs/price-oracle/feeds"
)

// feederCmd action runs the price reporting loop
//
// $ price-oracle feeder
func feederCmd(cmd *cli.Cmd) {
	var (
		oracleURL       *string
		feedsDir        *string
		reporterAccount *string

		// Metrics
		statsdPrefix   *string
		statsdAddr     *string
		statsdStuckDur *string
		statsdMocking  *string
		statsdDisabled *string
	)

	initFeederOptions(
		cmd,
		&oracleURL,
		&feedsDir,
		&reporterAccount,
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

		feedConfigs := make([]*feeds.FeedConfig, 0, 10)
		err := filepath.WalkDir(*feedsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			} else if d.IsDir() {
				return nil
			} else if filepath.Ext(path) != ".toml" {
				return nil
			}

			cfgBody, err := os.ReadFile(path)
			if err != nil {
				err = errors.Wrapf(err, "failed to read feed config")
				return err
			}

			feedCfg, err := feeds.ParseFeedConfig(cfgBody)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"filename": d.Name(),
				}).Errorln("failed to parse feed config")
				return nil
			}

			log.WithFields(log.Fields{
				"filename": d.Name(),
				"hash":     feedCfg.Hash(),
			}).Debugln("loaded feed config")

			feedConfigs = append(feedConfigs, feedCfg)

			return nil
		})

		if err != nil {
			err = errors.Wrapf(err, "feeds dir is specified, but failed to read from it: %s", *feedsDir)
			log.WithError(err).Fatalln("failed to load feeds")
			return
		}

		log.Infof("found %d feed configs", len(feedConfigs))

		client := feeds.NewClient(*oracleURL, *reporterAccount)

		svc, err := feeds.NewService(client, feedConfigs)
		if err != nil {
			log.Fatalln(err)
		}

		closer.Bind(func() {
			svc.Close()
		})

		go func() {
			if err := svc.Start(); err != nil {
				log.Errorln(err)

				// signal there that the app failed
				os.Exit(1)
			}
		}()

		closer.Hold()
	}
}
