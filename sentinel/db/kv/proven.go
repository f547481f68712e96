package kv

import (
	bolt "go.etcd.io/bbolt"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

// UpdateProvenPerformance implements db.Database. Re-applying the same
// (validator, epoch) pair overwrites the prior record (spec invariant 7).
func (s *Store) UpdateProvenPerformance(epoch chain.EpochNumber, results map[chain.ValidatorAddress]chain.ProvenEpochRecord) error {
	s.mu.RLock()
	window := s.provenWindowEpoch
	s.mu.RUnlock()

	var cutoff uint64
	if window > 0 && uint64(epoch) >= window {
		cutoff = uint64(epoch) - window + 1
	}

	return s.update(func(tx *bolt.Tx) error {
		top := tx.Bucket(provenBucket)
		for addr, rec := range results {
			vb, err := top.CreateBucketIfNotExists(addr.Bytes())
			if err != nil {
				return err
			}
			if err := vb.Put(encodeEpochKey(uint64(epoch)), encodeProvenValue(rec.Missed, rec.Total)); err != nil {
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
}

// ProvenPerformance implements db.Database, returning records ordered by
// ascending epoch.
func (s *Store) ProvenPerformance(addr chain.ValidatorAddress) ([]chain.ProvenEpochRecord, error) {
	var records []chain.ProvenEpochRecord
	err := s.view(func(tx *bolt.Tx) error {
		top := tx.Bucket(provenBucket)
		vb := top.Bucket(addr.Bytes())
		if vb == nil {
			return nil
		}
		return vb.ForEach(func(k, v []byte) error {
			missed, total := decodeProvenValue(v)
			records = append(records, chain.ProvenEpochRecord{
				Epoch:  chain.EpochNumber(fromBytes8(k)),
				Missed: missed,
				Total:  total,
			})
			return nil
		})
	})
	return records, err
}
