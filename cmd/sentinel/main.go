// Command sentinel runs the validator sentinel as a standalone process. It
// is a demo entrypoint: the chain collaborators it wires are in-memory
// fakes, since dialing a real L1/L2 node is out of this repository's scope.
// Embedding the sentinel in an actual node means supplying real
// chain.EpochCache/BlockSource/AttestationPool implementations to
// node.Options in place of the fakes constructed here.
package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/config"
	"github.com/l2sentinel/sentinel-node/sentinel/node"
	"github.com/l2sentinel/sentinel-node/sentinel/stats"
)

var log = logrus.WithField("prefix", "main")

func main() {
	app := cli.NewApp()
	app.Name = "sentinel"
	app.Usage = "validator activity monitor and inactivity-slashing recommender for an L2 rollup"
	app.Flags = appFlags
	app.Action = startNode

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("runtime panic: %v\n%v", r, string(debug.Stack()))
			panic(r)
		}
	}()

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func startNode(ctx *cli.Context) error {
	level, err := logrus.ParseLevel(ctx.String(verbosityFlag.Name))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	penalty, err := parsePenalty(ctx.String(slashPenaltyFlag.Name))
	if err != nil {
		return err
	}

	cfg := &config.Config{
		HistoryLengthInEpochs:                    ctx.Uint64(historyLengthFlag.Name),
		HistoricProvenPerformanceLengthInEpochs:   ctx.Uint64(provenWindowFlag.Name),
		SlashInactivityTargetPercentage:           ctx.Float64(slashTargetFlag.Name),
		SlashInactivityConsecutiveEpochThreshold:  uint32(ctx.Uint64(slashThresholdFlag.Name)),
		SlashInactivityPenalty:                    penalty,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return fmt.Errorf("no data directory resolved; pass --%s explicitly", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	n, err := node.New(&node.Options{
		DataDir:         dataDir,
		ClearDB:         ctx.Bool(clearDBFlag.Name),
		MetricsAddr:     ctx.String(monitoringAddrFlag.Name),
		EpochCache:      chain.NewFakeEpochCache(),
		BlockSource:     chain.NewFakeBlockSource(),
		AttestationPool: chain.NewFakeAttestationPool(),
		SentinelConfig:  cfg,
		Clock:           stats.GenesisClock{Genesis: time.Now(), SlotDuration: 12 * time.Second},
	})
	if err != nil {
		return err
	}

	n.Start()
	return nil
}

func parsePenalty(s string) (*uint256.Int, error) {
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", slashPenaltyFlag.Name, s, err)
	}
	return v, nil
}
