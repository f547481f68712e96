// Package db defines the persistence contract for the sentinel's
// per-validator sliding-window history and per-epoch proven-performance
// records. Concrete backing stores live in sub-packages, e.g. sentinel/db/kv
// for the embedded bbolt implementation.
package db

import (
	"github.com/pkg/errors"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

// ErrStorageUnavailable is returned when the backing store cannot complete
// an operation; fatal for the calling tick, retried on the next one.
var ErrStorageUnavailable = errors.New("db: storage unavailable")

// Database is the storage contract HistoryStore is built on. Implementations
// must serialize operations per key and make each
// UpdateValidators/UpdateProvenPerformance call atomic across the whole
// batch passed to it.
type Database interface {
	// UpdateValidators appends {slot, status} to each named validator's
	// history and trims entries older than the configured window. The whole
	// batch is applied atomically.
	UpdateValidators(slot chain.SlotNumber, statuses map[chain.ValidatorAddress]chain.PerSlotStatus) error
	// History returns the stored history for addr, ordered by ascending
	// slot, or ok=false if nothing is stored for it.
	History(addr chain.ValidatorAddress) (entries []chain.ValidatorHistoryEntry, ok bool, err error)
	// Histories returns the stored history for every validator with any
	// recorded entry.
	Histories() (map[chain.ValidatorAddress][]chain.ValidatorHistoryEntry, error)
	// UpdateProvenPerformance upserts one ProvenEpochRecord per validator for
	// epoch and prunes records older than the configured proven-performance
	// window. Re-applying the same epoch for the same validator overwrites
	// (idempotent).
	UpdateProvenPerformance(epoch chain.EpochNumber, results map[chain.ValidatorAddress]chain.ProvenEpochRecord) error
	// ProvenPerformance returns the stored proven-epoch records for addr,
	// ordered by ascending epoch.
	ProvenPerformance(addr chain.ValidatorAddress) ([]chain.ProvenEpochRecord, error)
	// HistoryWindowSlots returns the number of slots the per-validator
	// history window is configured to retain.
	HistoryWindowSlots() uint64
	// SetWindows hot-updates the retention windows; takes effect on the next
	// write.
	SetWindows(historySlots uint64, provenEpochs uint64)
	// Close releases any resources held by the backing store.
	Close() error
}
