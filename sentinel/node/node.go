// Package node wires every sentinel component into a single process,
// mirroring the lifecycle shape of slasher/node.SlasherNode: a service
// registry, a stop channel, and signal-driven graceful shutdown.
package node

import (
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"

	gethevent "github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/l2sentinel/sentinel-node/internal/serviceregistry"
	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/config"
	"github.com/l2sentinel/sentinel-node/sentinel/db"
	"github.com/l2sentinel/sentinel-node/sentinel/db/kv"
	"github.com/l2sentinel/sentinel-node/sentinel/metrics"
	"github.com/l2sentinel/sentinel-node/sentinel/observer"
	"github.com/l2sentinel/sentinel-node/sentinel/performance"
	"github.com/l2sentinel/sentinel-node/sentinel/slasher"
	"github.com/l2sentinel/sentinel-node/sentinel/slotindex"
	"github.com/l2sentinel/sentinel-node/sentinel/stats"
	"github.com/l2sentinel/sentinel-node/sentinel/tiptracker"
)

var log = logrus.WithField("prefix", "sentinel-node")

const dbName = "sentineldata"

// Options configures a Node at construction time. The chain collaborators
// are supplied by the caller rather than dialed here: the sentinel only
// consumes an EpochCache/BlockSource/AttestationPool view, it does not own
// the transport to whatever produces them.
type Options struct {
	DataDir         string
	ClearDB         bool
	MetricsAddr     string
	EpochCache      chain.EpochCache
	BlockSource     chain.BlockSource
	AttestationPool chain.AttestationPool
	SentinelConfig  *config.Config
	Clock           stats.Clock
}

// Node owns every sentinel service and the database, and coordinates their
// startup and shutdown.
type Node struct {
	lock      sync.RWMutex
	services  *serviceregistry.Registry
	db        db.Database
	cfg       *config.Store
	index     *slotindex.Index
	slasher   *slasher.Slasher
	stats     *stats.Reporter
	slashFeed *gethevent.Feed
	stop      chan struct{}
}

// New constructs a Node and registers every service, but does not start
// them; call Start for that.
func New(opts *Options) (*Node, error) {
	if opts.SentinelConfig == nil {
		opts.SentinelConfig = config.DefaultConfig()
	}
	if err := opts.SentinelConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sentinel configuration")
	}

	n := &Node{
		services:  serviceregistry.New(),
		cfg:       config.NewStore(opts.SentinelConfig),
		slashFeed: new(gethevent.Feed),
		stop:      make(chan struct{}),
	}

	if err := n.startDB(opts); err != nil {
		return nil, err
	}
	if err := n.registerMetricsService(opts); err != nil {
		return nil, err
	}
	if err := n.registerObserverService(opts); err != nil {
		return nil, err
	}

	return n, nil
}

// SlashFeed returns the feed want-to-slash intents are published on, for a
// consumer elsewhere in the node process to subscribe to.
func (n *Node) SlashFeed() *gethevent.Feed {
	return n.slashFeed
}

// ConfigStore returns the live, hot-reloadable configuration snapshot.
func (n *Node) ConfigStore() *config.Store {
	return n.cfg
}

// UpdateConfig validates partial and, if it passes, atomically replaces the
// live configuration snapshot. The slasher options and the database and
// slot-index windows are updated immediately, the windows sized with the
// assumed slots-per-epoch figure; the observer resizes both windows on its
// next tick with the real figure (see observer.tick).
func (n *Node) UpdateConfig(partial *config.Config) error {
	if err := n.cfg.Update(partial); err != nil {
		return err
	}
	cur := n.cfg.Current()
	if n.slasher != nil {
		n.slasher.UpdateConfig(slasher.Config{
			TargetPercentage:     cur.SlashInactivityTargetPercentage,
			ConsecutiveThreshold: cur.SlashInactivityConsecutiveEpochThreshold,
			Penalty:              cur.SlashInactivityPenalty,
		})
	}
	if n.db != nil {
		n.db.SetWindows(historyWindowSlots(cur), cur.HistoricProvenPerformanceLengthInEpochs)
	}
	if n.index != nil {
		n.index.SetWindow(int(historyWindowSlots(cur)))
	}
	return nil
}

// ComputeStats forwards to the sentinel's stats.Reporter, computing window
// statistics for one or more validators.
func (n *Node) ComputeStats(req stats.Request) (stats.ValidatorsStats, error) {
	return n.stats.ComputeStats(req)
}

// ValidatorStats forwards to the sentinel's stats.Reporter, computing window
// statistics for exactly one validator.
func (n *Node) ValidatorStats(addr chain.ValidatorAddress, fromSlot, toSlot *chain.SlotNumber) (*stats.SingleValidatorStats, bool, error) {
	return n.stats.ValidatorStats(addr, fromSlot, toSlot)
}

func (n *Node) startDB(opts *Options) error {
	dbPath := path.Join(opts.DataDir, dbName)
	cfg := &kv.Config{
		HistoryCacheEnabled: true,
		HistoryWindowSlots:  historyWindowSlots(opts.SentinelConfig),
		ProvenWindowEpochs:  opts.SentinelConfig.HistoricProvenPerformanceLengthInEpochs,
	}
	store, err := kv.NewDB(dbPath, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to open sentinel database")
	}
	if opts.ClearDB {
		log.Warning("Removing sentinel database")
		if err := store.ClearDB(); err != nil {
			return err
		}
	}
	n.db = store
	return nil
}

func historyWindowSlots(cfg *config.Config) uint64 {
	// A concrete slots-per-epoch figure is only known once the EpochCache is
	// queried, and the database is opened before that; the observer corrects
	// this estimate on its first tick once the real value is in hand.
	const assumedSlotsPerEpoch = 32
	return cfg.HistoryLengthInEpochs * assumedSlotsPerEpoch
}

func (n *Node) registerMetricsService(opts *Options) error {
	addr := opts.MetricsAddr
	if addr == "" {
		addr = ":9090"
	}
	service := metrics.New(addr, n.services)
	return n.services.RegisterService(service)
}

func (n *Node) registerObserverService(opts *Options) error {
	clock := opts.Clock
	cur := n.cfg.Current()
	index := slotindex.New(int(historyWindowSlots(cur)))
	tracker := tiptracker.New()
	reporter := stats.New(n.db, clock)

	slash := slasher.New(n.db, n.slashFeed, slasher.Config{
		TargetPercentage:     cur.SlashInactivityTargetPercentage,
		ConsecutiveThreshold: cur.SlashInactivityConsecutiveEpochThreshold,
		Penalty:              cur.SlashInactivityPenalty,
	})

	analyzer := performance.New(opts.EpochCache, n.db, reporter, slash)

	obs := observer.New(
		opts.EpochCache,
		opts.BlockSource,
		opts.AttestationPool,
		n.db,
		n.cfg,
		index,
		tracker,
		analyzer,
	)

	n.index = index
	n.slasher = slash
	n.stats = reporter

	return n.services.RegisterService(obs)
}

// Start kicks off every registered service and blocks until the process
// receives an interrupt or Close is called from elsewhere.
func (n *Node) Start() {
	n.lock.Lock()
	n.services.StartAll()
	n.lock.Unlock()

	stop := n.stop
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("panic closing the sentinel node")
	}()

	<-stop
}

// Close stops every registered service and releases the database, safe to
// call more than once.
func (n *Node) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	select {
	case <-n.stop:
		return
	default:
	}

	log.Info("Stopping sentinel node")
	n.services.StopAll()
	if err := n.db.Close(); err != nil {
		log.WithError(err).Error("failed to close sentinel database")
	}
	close(n.stop)
}
