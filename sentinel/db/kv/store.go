// Package kv implements sentinel/db.Database over an embedded bbolt store,
// with an optional ristretto read cache in front of per-validator history
// lookups, following the shape of slasher/db/kv.
package kv

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/db"
)

var log = logrus.WithField("prefix", "sentinel-db")

// Config configures the bbolt-backed Store.
type Config struct {
	// HistoryCacheEnabled turns on the ristretto read cache for per-validator
	// history lookups.
	HistoryCacheEnabled bool
	// HistoryWindowSlots bounds how many trailing slots of history are kept
	// per validator.
	HistoryWindowSlots uint64
	// ProvenWindowEpochs bounds how many trailing proven-epoch records are
	// kept per validator.
	ProvenWindowEpochs uint64
}

// Store is the bbolt-backed implementation of db.Database.
type Store struct {
	mu                sync.RWMutex
	db                *bolt.DB
	historyCache      *ristretto.Cache
	historyCacheOn    bool
	historyWindow     uint64
	provenWindowEpoch uint64
}

var _ db.Database = (*Store)(nil)

// NewDB opens (creating if absent) a bbolt database at path and returns a
// ready Store.
func NewDB(path string, cfg *Config) (*Store, error) {
	boltDB, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sentinel db")
	}
	s := &Store{
		db:                boltDB,
		historyWindow:     cfg.HistoryWindowSlots,
		provenWindowEpoch: cfg.ProvenWindowEpochs,
	}
	if cfg.HistoryCacheEnabled {
		c, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e6,
			MaxCost:     1 << 25,
			BufferItems: 64,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize history cache")
		}
		s.historyCache = c
		s.historyCacheOn = true
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{historyBucket, provenBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize sentinel db schema")
	}
	return s, nil
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	if err := s.db.View(fn); err != nil {
		return errors.Wrap(db.ErrStorageUnavailable, err.Error())
	}
	return nil
}

func (s *Store) update(fn func(tx *bolt.Tx) error) error {
	if err := s.db.Update(fn); err != nil {
		return errors.Wrap(db.ErrStorageUnavailable, err.Error())
	}
	return nil
}

func (s *Store) invalidateHistoryCache(addr chain.ValidatorAddress) {
	if s.historyCacheOn {
		s.historyCache.Del(addr)
	}
}

// HistoryWindowSlots implements db.Database.
func (s *Store) HistoryWindowSlots() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyWindow
}

// SetWindows implements db.Database.
func (s *Store) SetWindows(historySlots uint64, provenEpochs uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyWindow = historySlots
	s.provenWindowEpoch = provenEpochs
}

// Close implements db.Database.
func (s *Store) Close() error {
	if s.historyCacheOn {
		s.historyCache.Close()
	}
	return s.db.Close()
}

// ClearDB removes every bucket, used by tests and by the node's
// --clear-db flag.
func (s *Store) ClearDB() error {
	return s.update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{historyBucket, provenBucket} {
			if err := tx.DeleteBucket(b); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
}
