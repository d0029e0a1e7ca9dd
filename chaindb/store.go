// Package chaindb persists accepted blocks in badger: the block bodies, their
// records, the height index of the main chain and the sub-epoch summaries.
// Records are read through an LRU cache since difficulty adjustment walks
// them repeatedly.
package chaindb

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/ibr"
	"github.com/rony4d/go-spacetime/inter/ier"
)

// ErrHeightTaken is returned when a height is already mapped to another block.
var ErrHeightTaken = errors.New("height already indexed")

var (
	heightPrefix   = []byte("h")
	recordPrefix   = []byte("r")
	blockPrefix    = []byte("b")
	subEpochPrefix = []byte("s")
)

// Store is safe for concurrent readers.
type Store struct {
	db *badger.DB

	cache struct {
		Records *lru.Cache
		Heights *lru.Cache
	}

	Log log.Logger
}

// Open opens the store in dir, or in memory if dir is empty.
func Open(dir string, cacheSize int) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open chain db: %w", err)
	}
	s := &Store{db: db, Log: log.New("module", "chaindb")}
	if s.cache.Records, err = lru.New(cacheSize); err != nil {
		db.Close()
		return nil, err
	}
	if s.cache.Heights, err = lru.New(cacheSize); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(prefix []byte, k []byte) []byte {
	return append(append([]byte(nil), prefix...), k...)
}

func setRLP(txn *badger.Txn, k []byte, v interface{}) error {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return txn.Set(k, b)
}

// get decodes the value of k into v and reports whether it was found.
func (s *Store) get(k []byte, v interface{}) bool {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false
	}
	if err != nil {
		s.Log.Crit("Failed to get key-value", "key", string(k[:1]), "err", err)
	}
	if err := rlp.DecodeBytes(raw, v); err != nil {
		s.Log.Crit("Failed to decode rlp", "key", string(k[:1]), "err", err)
	}
	return true
}

// PutBlock stores the block body and its record, keyed by header hash.
func (s *Store) PutBlock(b *inter.Block) (ibr.SubBlockRecord, error) {
	var r ibr.SubBlockRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		r, err = s.putBlock(txn, b)
		return err
	})
	if err != nil {
		return ibr.SubBlockRecord{}, err
	}
	s.cache.Records.Add(r.HeaderHash, &r)
	return r, nil
}

// SetHashAtHeight indexes a main chain block. The index is append-only.
func (s *Store) SetHashAtHeight(height idx.Block, h hash.Hash) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return s.setHashAtHeight(txn, height, h)
	})
	if err != nil {
		return err
	}
	s.cache.Heights.Add(height, h)
	return nil
}

// CommitBlock stores an accepted block, indexes it at its height and stores
// the sub-epoch summary it completes, if any. Either all of them are written
// or none.
func (s *Store) CommitBlock(b *inter.Block, summary *ier.IdxSubEpochSummary) (ibr.SubBlockRecord, error) {
	var r ibr.SubBlockRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		if err = s.setHashAtHeight(txn, b.Height(), b.HeaderHash()); err != nil {
			return err
		}
		if r, err = s.putBlock(txn, b); err != nil {
			return err
		}
		if summary != nil {
			return s.putSubEpochSummary(txn, *summary)
		}
		return nil
	})
	if err != nil {
		return ibr.SubBlockRecord{}, err
	}
	s.cache.Records.Add(r.HeaderHash, &r)
	s.cache.Heights.Add(b.Height(), r.HeaderHash)
	return r, nil
}

func (s *Store) putBlock(txn *badger.Txn, b *inter.Block) (ibr.SubBlockRecord, error) {
	h := b.HeaderHash()
	if err := setRLP(txn, key(blockPrefix, h.Bytes()), b); err != nil {
		return ibr.SubBlockRecord{}, err
	}
	r := ibr.NewSubBlockRecord(b)
	if err := setRLP(txn, key(recordPrefix, h.Bytes()), &r); err != nil {
		return ibr.SubBlockRecord{}, err
	}
	return r, nil
}

func (s *Store) setHashAtHeight(txn *badger.Txn, height idx.Block, h hash.Hash) error {
	k := key(heightPrefix, bigendian.Uint64ToBytes(uint64(height)))
	item, err := txn.Get(k)
	if err == nil {
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var prev hash.Hash
		if err := rlp.DecodeBytes(raw, &prev); err != nil {
			return err
		}
		if prev == h {
			return nil
		}
		return fmt.Errorf("%w: %d is %s", ErrHeightTaken, height, prev.String())
	}
	if err != badger.ErrKeyNotFound {
		return err
	}
	return setRLP(txn, k, h)
}

// GetHashAtHeight returns the main chain block at height.
func (s *Store) GetHashAtHeight(height idx.Block) (hash.Hash, bool) {
	if c, ok := s.cache.Heights.Get(height); ok {
		return c.(hash.Hash), true
	}
	var h hash.Hash
	if !s.get(key(heightPrefix, bigendian.Uint64ToBytes(uint64(height))), &h) {
		return hash.Hash{}, false
	}
	s.cache.Heights.Add(height, h)
	return h, true
}

// GetSubBlockRecord returns the record of a block, nil if unknown.
func (s *Store) GetSubBlockRecord(h hash.Hash) *ibr.SubBlockRecord {
	if c, ok := s.cache.Records.Get(h); ok {
		return c.(*ibr.SubBlockRecord)
	}
	r := new(ibr.SubBlockRecord)
	if !s.get(key(recordPrefix, h.Bytes()), r) {
		return nil
	}
	s.cache.Records.Add(h, r)
	return r
}

// GetBlock returns a stored block, nil if unknown.
func (s *Store) GetBlock(h hash.Hash) *inter.Block {
	b := new(inter.Block)
	if !s.get(key(blockPrefix, h.Bytes()), b) {
		return nil
	}
	return b
}

// PutSubEpochSummary stores the summary of sub-epoch i.
func (s *Store) PutSubEpochSummary(sum ier.IdxSubEpochSummary) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.putSubEpochSummary(txn, sum)
	})
}

func (s *Store) putSubEpochSummary(txn *badger.Txn, sum ier.IdxSubEpochSummary) error {
	return setRLP(txn, key(subEpochPrefix, bigendian.Uint64ToBytes(uint64(sum.Idx))), &sum.SubEpochSummary)
}

// GetSubEpochSummary returns the summary of sub-epoch i.
func (s *Store) GetSubEpochSummary(i idx.Epoch) *ier.SubEpochSummary {
	sum := new(ier.SubEpochSummary)
	if !s.get(key(subEpochPrefix, bigendian.Uint64ToBytes(uint64(i))), sum) {
		return nil
	}
	return sum
}
