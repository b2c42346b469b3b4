// Package pakstore keeps a node's PAK policy state: the immutable configured
// policy loaded at startup and the active policy derived from the committed
// block history of the best chain.
//
// The active policy is never patched in place. It is always the fold of the
// commitments along the current history, starting from Reject at genesis, so a
// reorganization is handled by replacing the tail of the history and folding
// again from scratch.
//
// Store is not safe for concurrent use; the owning node serializes access.
package pakstore

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pak-sidechain/inter"
	"github.com/rony4d/go-pak-sidechain/inter/pak"
)

// NodePolicy is the per-process PAK configuration. It is fixed once loaded.
type NodePolicy struct {
	// Configured is the list this node was started with.
	Configured pak.List

	// Enforce disables every block and pegout check when false.
	Enforce bool
}

// Record is one connected block as far as the active policy is concerned.
type Record struct {
	Number     idx.Block
	Hash       hash.Hash
	Commitment []byte // nil when the block carried no commitment
}

// RecordOf extracts the policy-relevant part of a block.
func RecordOf(b *inter.Block) Record {
	return Record{Number: b.Number, Hash: b.Hash(), Commitment: b.Commitment}
}

type recordRLP struct {
	Number        uint64
	Hash          hash.Hash
	HasCommitment bool
	Commitment    []byte
}

var recordPrefix = []byte("pakr")

func recordKey(n idx.Block) []byte {
	return append(append([]byte{}, recordPrefix...), bigendian.Uint64ToBytes(uint64(n))...)
}

// Store holds the configured policy, the committed history and the active
// policy folded from it.
type Store struct {
	policy  NodePolicy
	db      ethdb.KeyValueStore
	history []Record
	active  pak.List
	log     *logrus.Entry
}

// Open loads the persisted history from db and folds the active policy.
func Open(db ethdb.KeyValueStore, policy NodePolicy, log *logrus.Entry) (*Store, error) {
	s := &Store{
		policy: policy,
		db:     db,
		log:    log.WithField("module", "pakstore"),
	}

	it := db.NewIterator(recordPrefix, nil)
	defer it.Release()
	for it.Next() {
		var enc recordRLP
		if err := rlp.DecodeBytes(it.Value(), &enc); err != nil {
			return nil, fmt.Errorf("decode record %x: %w", it.Key(), err)
		}
		rec := Record{Number: idx.Block(enc.Number), Hash: enc.Hash}
		if enc.HasCommitment {
			rec.Commitment = append([]byte{}, enc.Commitment...)
		}
		if want := idx.Block(len(s.history) + 1); rec.Number != want {
			return nil, fmt.Errorf("history gap: found block %d, expected %d", rec.Number, want)
		}
		s.history = append(s.history, rec)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	active, err := Fold(s.history)
	if err != nil {
		return nil, err
	}
	s.active = active
	s.log.WithFields(logrus.Fields{
		"configured": policy.Configured,
		"enforce":    policy.Enforce,
		"height":     len(s.history),
		"active":     active,
	}).Info("PAK policy loaded")
	return s, nil
}

// Fold replays commitments from genesis and returns the resulting active list.
func Fold(history []Record) (pak.List, error) {
	active := pak.RejectList()
	for _, rec := range history {
		if rec.Commitment == nil {
			continue
		}
		l, err := pak.DecodeCommitment(rec.Commitment)
		if err != nil {
			return pak.List{}, fmt.Errorf("block %d: %w", rec.Number, err)
		}
		active = l
	}
	return active, nil
}

// Policy returns the configured node policy.
func (s *Store) Policy() NodePolicy { return s.policy }

// Active returns the policy in force on the current best chain.
func (s *Store) Active() pak.List { return s.active }

// Height is the number of the tip block, 0 for an empty chain.
func (s *Store) Height() idx.Block { return idx.Block(len(s.history)) }

// TipHash is the id of the tip block.
func (s *Store) TipHash() hash.Hash {
	if len(s.history) == 0 {
		return inter.GenesisHash
	}
	return s.history[len(s.history)-1].Hash
}

// History returns a copy of the committed history.
func (s *Store) History() []Record {
	return append([]Record(nil), s.history...)
}

// Append connects a record on top of the tip. It reports whether the active
// policy changed. Commitment bytes that cannot be decoded are refused and
// leave the store untouched.
func (s *Store) Append(rec Record) (bool, error) {
	if want := s.Height() + 1; rec.Number != want {
		return false, fmt.Errorf("block %d does not extend tip %d", rec.Number, s.Height())
	}
	next := s.active
	if rec.Commitment != nil {
		l, err := pak.DecodeCommitment(rec.Commitment)
		if err != nil {
			return false, err
		}
		next = l
	}

	batch := s.db.NewBatch()
	if err := putRecord(batch, rec); err != nil {
		return false, err
	}
	if err := batch.Write(); err != nil {
		return false, err
	}

	s.history = append(s.history, rec)
	return s.setActive(next), nil
}

// Reorg drops every record above ancestor, connects branch on top of it and
// recomputes the active policy from genesis. It reports whether the active
// policy changed. On error nothing is modified.
func (s *Store) Reorg(ancestor idx.Block, branch []Record) (bool, error) {
	if ancestor > s.Height() {
		return false, fmt.Errorf("reorg ancestor %d is above tip %d", ancestor, s.Height())
	}
	history := append(append([]Record(nil), s.history[:ancestor]...), branch...)
	for i, rec := range history {
		if rec.Number != idx.Block(i+1) {
			return false, fmt.Errorf("reorg branch is not contiguous at block %d", rec.Number)
		}
	}
	active, err := Fold(history)
	if err != nil {
		return false, err
	}

	batch := s.db.NewBatch()
	for n := idx.Block(len(history)) + 1; n <= s.Height(); n++ {
		if err := batch.Delete(recordKey(n)); err != nil {
			return false, err
		}
	}
	for _, rec := range branch {
		if err := putRecord(batch, rec); err != nil {
			return false, err
		}
	}
	if err := batch.Write(); err != nil {
		return false, err
	}

	s.log.WithFields(logrus.Fields{
		"ancestor": ancestor,
		"old":      s.Height(),
		"new":      len(history),
	}).Info("PAK history reorganized")
	s.history = history
	return s.setActive(active), nil
}

func (s *Store) setActive(next pak.List) bool {
	if next.Equal(s.active) {
		return false
	}
	s.log.WithFields(logrus.Fields{
		"from":   s.active,
		"to":     next,
		"height": s.Height(),
	}).Info("Active PAK list changed")
	s.active = next
	return true
}

func putRecord(w ethdb.KeyValueWriter, rec Record) error {
	enc, err := rlp.EncodeToBytes(&recordRLP{
		Number:        uint64(rec.Number),
		Hash:          rec.Hash,
		HasCommitment: rec.Commitment != nil,
		Commitment:    rec.Commitment,
	})
	if err != nil {
		return err
	}
	return w.Put(recordKey(rec.Number), enc)
}
