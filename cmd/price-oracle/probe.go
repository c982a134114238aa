package main

import (
	"context"
	"os"

	log "github.com/InjectiveLabs/suplog"
	cli "github.com/jawher/mow.cli"
	"github.com/xlab/closer"

	"github.com/onchainlabs/price-oracle/feeds"
)

// probeCmd action validates target TOML feed config and runs it once, printing the result.
//
// $ price-oracle probe <FILE>
func probeCmd(cmd *cli.Cmd) {
	tomlSource := cmd.StringArg("FILE", "", "Path to target TOML file with the feed config")

	cmd.Action = func() {
		// ensure a clean exit
		defer closer.Close()

		cfgBody, err := os.ReadFile(*tomlSource)
		if err != nil {
			log.WithField("file", *tomlSource).WithError(err).Fatalln("failed to read feed config")
			return
		}

		feedCfg, err := feeds.ParseFeedConfig(cfgBody)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"file": *tomlSource,
			}).Errorln("failed to parse feed config")
			return
		}

		pricePuller, err := feeds.NewHTTPPriceFeed(feedCfg)
		if err != nil {
			log.WithError(err).Fatalln("failed to init price feed")
			return
		}

		pullerLogger := log.WithFields(log.Fields{
			"source": pricePuller.Source(),
			"symbol": pricePuller.Symbol(),
		})

		price, err := pricePuller.PullPrice(context.Background())
		if err != nil {
			pullerLogger.WithError(err).Errorln("failed to pull price")
			return
		}

		log.Infof("Answer: %s", price.String())
	}
}
