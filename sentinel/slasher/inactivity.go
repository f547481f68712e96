// Package slasher implements the InactivitySlasher: it reads proven-
// performance history and emits "want-to-slash" events for validators
// meeting the consecutive-inactive-epoch criterion.
package slasher

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/db"
)

var log = logrus.WithField("prefix", "sentinel-slasher")

// OffenseType enumerates recognized slashable offenses. Only INACTIVITY is
// implemented by this sentinel; the enum leaves room for others a consuming
// slasher may recognize.
type OffenseType uint8

const (
	// OffenseInactivity is emitted when a validator is persistently inactive
	// across consecutive proven epochs.
	OffenseInactivity OffenseType = iota
)

// SlashIntent is the wire-contract payload of a single "want-to-slash"
// recommendation.
type SlashIntent struct {
	Validator   chain.ValidatorAddress
	Amount      *uint256.Int
	OffenseType OffenseType
	EpochOrSlot uint64
}

// Config holds the recognized inactivity-slashing options.
type Config struct {
	TargetPercentage     float64
	ConsecutiveThreshold uint32
	Penalty              *uint256.Int
}

// Slasher is the InactivitySlasher.
type Slasher struct {
	store db.Database
	feed  *event.Feed

	mu  sync.RWMutex
	cfg Config
}

// New returns a Slasher reading proven-performance from store and emitting
// want-to-slash batches on feed.
func New(store db.Database, feed *event.Feed, cfg Config) *Slasher {
	return &Slasher{store: store, feed: feed, cfg: cfg}
}

// UpdateConfig hot-swaps the recognized options; picked up on the next
// Evaluate call.
func (s *Slasher) UpdateConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// CurrentConfig returns the options Evaluate is currently using.
func (s *Slasher) CurrentConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Evaluate is invoked by the ProvenPerformanceAnalyzer (component G) after
// it persists epoch's ProvenEpochRecords. result is that same epoch's
// freshly computed per-validator missed/total counts.
func (s *Slasher) Evaluate(epoch chain.EpochNumber, result map[chain.ValidatorAddress]chain.ProvenEpochRecord) error {
	cfg := s.CurrentConfig()
	if cfg.Penalty == nil || cfg.Penalty.IsZero() {
		return nil
	}

	var intents []SlashIntent
	for v, rec := range result {
		rate, ok := rec.MissedRate()
		if !ok || rate < cfg.TargetPercentage {
			continue
		}
		qualifies, err := s.hasConsecutiveHistory(v, epoch, cfg)
		if err != nil {
			return err
		}
		if !qualifies {
			continue
		}
		intents = append(intents, SlashIntent{
			Validator:   v,
			Amount:      cfg.Penalty,
			OffenseType: OffenseInactivity,
			EpochOrSlot: uint64(epoch),
		})
	}

	if len(intents) == 0 {
		return nil
	}
	log.WithField("count", len(intents)).WithField("epoch", epoch).Info("emitting inactivity slash intents")
	s.feed.Send(intents)
	return nil
}

// hasConsecutiveHistory requires threshold-1 additional consecutive proven
// epochs strictly before epoch, all at or above target. If threshold <= 1,
// no additional history is required.
func (s *Slasher) hasConsecutiveHistory(v chain.ValidatorAddress, epoch chain.EpochNumber, cfg Config) (bool, error) {
	if cfg.ConsecutiveThreshold <= 1 {
		return true, nil
	}
	records, err := s.store.ProvenPerformance(v)
	if err != nil {
		return false, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Epoch > records[j].Epoch })

	var prior []chain.ProvenEpochRecord
	for _, r := range records {
		if r.Epoch < epoch {
			prior = append(prior, r)
		}
	}

	need := int(cfg.ConsecutiveThreshold) - 1
	if len(prior) < need {
		return false, nil
	}
	for i := 0; i < need; i++ {
		rate, ok := prior[i].MissedRate()
		if !ok || rate < cfg.TargetPercentage {
			return false, nil
		}
	}
	return true, nil
}
