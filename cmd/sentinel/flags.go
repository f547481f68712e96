package main

import "github.com/urfave/cli/v2"

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the sentinel database",
		Value: defaultDataDir(),
	}
	clearDBFlag = &cli.BoolFlag{
		Name:  "clear-db",
		Usage: "Clears any previously stored sentinel data at startup",
	}
	monitoringAddrFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host:port serving /metrics, /healthz, and /goroutinez",
		Value: ":9090",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info, warn, error, fatal, panic)",
		Value: "info",
	}
	historyLengthFlag = &cli.Uint64Flag{
		Name:  "history-length-epochs",
		Usage: "Number of trailing epochs of per-slot validator history retained",
		Value: 8,
	}
	provenWindowFlag = &cli.Uint64Flag{
		Name:  "proven-performance-window-epochs",
		Usage: "Number of trailing proven-epoch records retained per validator",
		Value: 8,
	}
	slashTargetFlag = &cli.Float64Flag{
		Name:  "slash-inactivity-target-percentage",
		Usage: "Missed/total ratio, in [0,1], at or above which an epoch counts toward inactivity slashing",
		Value: 0.5,
	}
	slashThresholdFlag = &cli.Uint64Flag{
		Name:  "slash-inactivity-consecutive-epoch-threshold",
		Usage: "Number of consecutive qualifying epochs required before a slash intent is emitted",
		Value: 3,
	}
	slashPenaltyFlag = &cli.StringFlag{
		Name:  "slash-inactivity-penalty",
		Usage: "u256 slash amount; 0 (default) disables inactivity slashing entirely",
		Value: "0",
	}
)

var appFlags = []cli.Flag{
	dataDirFlag,
	clearDBFlag,
	monitoringAddrFlag,
	verbosityFlag,
	historyLengthFlag,
	provenWindowFlag,
	slashTargetFlag,
	slashThresholdFlag,
	slashPenaltyFlag,
}
