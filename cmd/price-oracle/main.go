package main

import (
	"fmt"
	"os"

	log "github.com/InjectiveLabs/suplog"
	cli "github.com/jawher/mow.cli"

	"github.com/onchainlabs/price-oracle/version"
)

var app = cli.App("price-oracle", "USD price oracle with quorum aggregation and pluggable reporting feeds.")

var (
	envName     *string
	appLogLevel *string
)

func panicIf(err error, msg ...interface{}) {
	if err != nil {
		log.WithError(err).Errorln(msg...)
		panic(err)
	}
}

func main() {
	readEnv()
	initGlobalOptions(
		&envName,
		&appLogLevel,
	)

	app.Before = func() {
		log.DefaultLogger.SetLevel(logLevel(*appLogLevel))
	}

	app.Command("server", "Starts the oracle API server.", serverCmd)
	app.Command("feeder", "Starts the price feeds reporter loop.", feederCmd)
	app.Command("probe", "Validates a feed config file and pulls the price once.", probeCmd)
	app.Command("version", "Print the version information and exit.", versionCmd)

	_ = app.Run(os.Args)
}

func versionCmd(c *cli.Cmd) {
	c.Action = func() {
		fmt.Println(version.Version())
	}
}
