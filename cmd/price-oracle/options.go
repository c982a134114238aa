package main

import cli "github.com/jawher/mow.cli"

// initGlobalOptions defines some global CLI options, that are useful for most parts of the app.
// Before adding option to there, consider moving it into the actual Cmd.
func initGlobalOptions(
	envName **string,
	appLogLevel **string,
) {
	*envName = app.String(cli.StringOpt{
		Name:   "e env",
		Desc:   "The environment name this app runs in. Used for metrics and error reporting.",
		EnvVar: "ORACLE_ENV",
		Value:  "local",
	})

	*appLogLevel = app.String(cli.StringOpt{
		Name:   "l log-level",
		Desc:   "Available levels: error, warn, info, debug.",
		EnvVar: "ORACLE_LOG_LEVEL",
		Value:  "info",
	})
}

func initServerOptions(
	cmd *cli.Cmd,
	listenAddr **string,
	dbPath **string,
	ownerAccount **string,
) {
	*listenAddr = cmd.String(cli.StringOpt{
		Name:   "listen-addr",
		Desc:   "Address and port for the oracle HTTP API to listen on.",
		EnvVar: "ORACLE_LISTEN_ADDR",
		Value:  "localhost:8080",
	})

	*dbPath = cmd.String(cli.StringOpt{
		Name:   "db-path",
		Desc:   "Path to the oracle state database dir. Leave empty to run without persistence.",
		EnvVar: "ORACLE_DB_PATH",
		Value:  "var/oracle-db",
	})

	*ownerAccount = cmd.String(cli.StringOpt{
		Name:   "owner",
		Desc:   "Account name of the oracle owner. Only the owner can init, tune quorum and clear prices.",
		EnvVar: "ORACLE_OWNER_ACCOUNT",
		Value:  "oracle-owner",
	})
}

func initFeederOptions(
	cmd *cli.Cmd,
	oracleURL **string,
	feedsDir **string,
	reporterAccount **string,
) {
	*oracleURL = cmd.String(cli.StringOpt{
		Name:   "oracle-url",
		Desc:   "Base URL of the oracle API server to submit reports to.",
		EnvVar: "ORACLE_URL",
		Value:  "http://localhost:8080",
	})

	*feedsDir = cmd.String(cli.StringOpt{
		Name:   "feeds",
		Desc:   "Path to feed configuration files in TOML format.",
		EnvVar: "ORACLE_FEEDS_DIR",
		Value:  "feeds.d",
	})

	*reporterAccount = cmd.String(cli.StringOpt{
		Name:   "reporter",
		Desc:   "Account name the feeder reports prices under.",
		EnvVar: "ORACLE_REPORTER_ACCOUNT",
		Value:  "price-feeder",
	})
}

// initStatsdOptions sets options for StatsD metrics.
func initStatsdOptions(
	cmd *cli.Cmd,
	statsdPrefix **string,
	statsdAddr **string,
	statsdStuckDur **string,
	statsdMocking **string,
	statsdDisabled **string,
) {
	*statsdPrefix = cmd.String(cli.StringOpt{
		Name:   "statsd-prefix",
		Desc:   "Specify StatsD compatible metrics prefix.",
		EnvVar: "ORACLE_STATSD_PREFIX",
		Value:  "oracle",
	})

	*statsdAddr = cmd.String(cli.StringOpt{
		Name:   "statsd-addr",
		Desc:   "UDP address of a StatsD compatible metrics aggregator.",
		EnvVar: "ORACLE_STATSD_ADDR",
		Value:  "localhost:8125",
	})

	*statsdStuckDur = cmd.String(cli.StringOpt{
		Name:   "statsd-stuck-func",
		Desc:   "Sets a duration to consider a function to be stuck (e.g. in deadlock).",
		EnvVar: "ORACLE_STATSD_STUCK_DUR",
		Value:  "5m",
	})

	*statsdMocking = cmd.String(cli.StringOpt{
		Name:   "statsd-mocking",
		Desc:   "If enabled replaces statsd client with a mock one that simply logs values.",
		EnvVar: "ORACLE_STATSD_MOCKING",
		Value:  "false",
	})

	*statsdDisabled = cmd.String(cli.StringOpt{
		Name:   "statsd-disabled",
		Desc:   "Force disabling statsd reporting completely.",
		EnvVar: "ORACLE_STATSD_DISABLED",
		Value:  "true",
	})
}
