package kv

import (
	bolt "go.etcd.io/bbolt"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

// UpdateValidators implements db.Database. For each validator in statuses it
// appends {slot, status} to that validator's history bucket and trims
// entries at or before slot-window, so only the trailing window slots are
// kept. The whole batch is applied in a single
// bbolt transaction, so it is atomic.
func (s *Store) UpdateValidators(slot chain.SlotNumber, statuses map[chain.ValidatorAddress]chain.PerSlotStatus) error {
	s.mu.RLock()
	window := s.historyWindow
	s.mu.RUnlock()

	var cutoff uint64
	if window > 0 && uint64(slot) >= window {
		cutoff = uint64(slot) - window + 1
	}

	err := s.update(func(tx *bolt.Tx) error {
		top := tx.Bucket(historyBucket)
		for addr, status := range statuses {
			vb, err := top.CreateBucketIfNotExists(addr.Bytes())
			if err != nil {
				return err
			}
			if err := vb.Put(encodeSlotKey(uint64(slot)), encodeHistoryValue(byte(status))); err != nil {
				return err
			}
			if window > 0 {
				c := vb.Cursor()
				for k, _ := c.First(); k != nil && fromBytes8(k) < cutoff; k, _ = c.Next() {
					if err := vb.Delete(k); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for addr := range statuses {
		s.invalidateHistoryCache(addr)
	}
	return nil
}

// History implements db.Database.
func (s *Store) History(addr chain.ValidatorAddress) ([]chain.ValidatorHistoryEntry, bool, error) {
	if s.historyCacheOn {
		if v, ok := s.historyCache.Get(addr); ok {
			entries := v.([]chain.ValidatorHistoryEntry)
			return entries, true, nil
		}
	}
	var entries []chain.ValidatorHistoryEntry
	var found bool
	err := s.view(func(tx *bolt.Tx) error {
		top := tx.Bucket(historyBucket)
		vb := top.Bucket(addr.Bytes())
		if vb == nil {
			return nil
		}
		found = true
		return vb.ForEach(func(k, v []byte) error {
			status, err := chain.ParsePerSlotStatus(v[0])
			if err != nil {
				return err
			}
			entries = append(entries, chain.ValidatorHistoryEntry{
				Slot:   chain.SlotNumber(fromBytes8(k)),
				Status: status,
			})
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	if found && s.historyCacheOn {
		s.historyCache.Set(addr, entries, int64(len(entries)+1))
	}
	return entries, found, nil
}

// Histories implements db.Database.
func (s *Store) Histories() (map[chain.ValidatorAddress][]chain.ValidatorHistoryEntry, error) {
	out := make(map[chain.ValidatorAddress][]chain.ValidatorHistoryEntry)
	err := s.view(func(tx *bolt.Tx) error {
		top := tx.Bucket(historyBucket)
		return top.ForEach(func(name, v []byte) error {
			if v != nil {
				// Not a nested (per-validator) bucket; shouldn't occur in this
				// bucket's schema, but skip defensively.
				return nil
			}
			addr := chain.ValidatorAddress{}
			addr.SetBytes(name)
			vb := top.Bucket(name)
			var entries []chain.ValidatorHistoryEntry
			if err := vb.ForEach(func(k, v []byte) error {
				status, err := chain.ParsePerSlotStatus(v[0])
				if err != nil {
					return err
				}
				entries = append(entries, chain.ValidatorHistoryEntry{
					Slot:   chain.SlotNumber(fromBytes8(k)),
					Status: status,
				})
				return nil
			}); err != nil {
				return err
			}
			out[addr] = entries
			return nil
		})
	})
	return out, err
}
