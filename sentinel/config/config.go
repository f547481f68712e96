// Package config holds the sentinel's recognized runtime options and their
// hot-reload mechanism: callers replace the whole snapshot atomically, and
// every component reads the current snapshot at the start of its next tick
// rather than holding a stale copy.
package config

import (
	"sync/atomic"

	"github.com/holiman/uint256"
)

// Config holds the recognized runtime options.
type Config struct {
	// HistoryLengthInEpochs sizes the per-slot history window (W_slots =
	// HistoryLengthInEpochs * slotsPerEpoch).
	HistoryLengthInEpochs uint64
	// HistoricProvenPerformanceLengthInEpochs sizes the proven-performance
	// window. Must be >= SlashInactivityConsecutiveEpochThreshold.
	HistoricProvenPerformanceLengthInEpochs uint64
	// SlashInactivityTargetPercentage is the missed/total classification
	// threshold, in [0,1].
	SlashInactivityTargetPercentage float64
	// SlashInactivityConsecutiveEpochThreshold is the consecutive-epoch
	// hysteresis before a slash is emitted.
	SlashInactivityConsecutiveEpochThreshold uint32
	// SlashInactivityPenalty is the u256 slash amount; zero disables
	// inactivity slashing entirely.
	SlashInactivityPenalty *uint256.Int
}

// DefaultConfig returns conservative defaults with inactivity slashing
// disabled (SlashInactivityPenalty == 0).
func DefaultConfig() *Config {
	return &Config{
		HistoryLengthInEpochs:                    8,
		HistoricProvenPerformanceLengthInEpochs:  8,
		SlashInactivityTargetPercentage:          0.5,
		SlashInactivityConsecutiveEpochThreshold: 3,
		SlashInactivityPenalty:                   uint256.NewInt(0),
	}
}

// Validate enforces the documented cross-field invariant (proven window >=
// consecutive-epoch threshold) and that the target percentage lies in [0,1].
func (c *Config) Validate() error {
	if c.HistoricProvenPerformanceLengthInEpochs < uint64(c.SlashInactivityConsecutiveEpochThreshold) {
		return errInvalidProvenWindow
	}
	if c.SlashInactivityTargetPercentage < 0 || c.SlashInactivityTargetPercentage > 1 {
		return errInvalidTargetPercentage
	}
	return nil
}

// Store is an atomically-swappable Config snapshot. The zero Store is not
// usable; construct with NewStore.
type Store struct {
	v atomic.Value
}

// NewStore returns a Store holding an initial snapshot of cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.v.Store(cfg)
	return s
}

// Current returns the active snapshot. Safe for concurrent use; the
// returned value must be treated as immutable by the caller.
func (s *Store) Current() *Config {
	return s.v.Load().(*Config)
}

// Update atomically replaces the active snapshot with cfg. Takes effect on
// the next read by any component.
func (s *Store) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.v.Store(cfg)
	return nil
}
