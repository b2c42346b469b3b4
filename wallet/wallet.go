// Package wallet implements the pegout wallet: the derivation state that binds
// the node's sidechain signing identity (liquid_pak) to mainchain destination
// keys taken from an operator-supplied extended public key.
//
// Both sides use non-hardened BIP32 derivation at /0/<counter>:
//   - liquid_pak is derived from the wallet's own seed,
//   - the address lookahead is derived from bitcoin_xpub,
//   - the offline key registered in the PAK list is the negated xpub key.
//
// Every pegout built with the current liquid_pak moves the counter forward by
// one so no derived identity is used twice.
package wallet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pak-sidechain/chainparams"
	"github.com/rony4d/go-pak-sidechain/inter/pak"
)

// Wallet errors. The messages are returned to RPC callers verbatim.
var (
	ErrCounterOutOfRange = errors.New("bip32_counter must be between 0 and 1,000,000,000, inclusive.")
	ErrWrongNetwork      = errors.New("bitcoin_xpub is invalid for this network")
	ErrInvalidXpub       = errors.New("bitcoin_xpub must be a valid extended public key")
	ErrNotInitialized    = errors.New("Pegout wallet is not initialized")
)

var stateKey = []byte("pakwallet")

// State is one fully derived wallet snapshot. It is immutable.
type State struct {
	Xpub             string
	Counter          uint32
	DerivationPath   string
	LiquidPak        *btcec.PrivateKey
	OnlineKey        pak.PubKey
	OfflineKey       pak.PubKey
	AddressLookahead []btcutil.Address
}

// PakEntry is the registration string other nodes add to their configuration.
func (s *State) PakEntry() string {
	return pak.NewEntry(s.OnlineKey, s.OfflineKey).String()
}

// Destination is the mainchain address the next pegout pays to.
func (s *State) Destination() btcutil.Address {
	return s.AddressLookahead[0]
}

// Lookahead renders the lookahead addresses in mainchain encoding.
func (s *State) Lookahead() []string {
	out := make([]string, len(s.AddressLookahead))
	for i, a := range s.AddressLookahead {
		out[i] = a.EncodeAddress()
	}
	return out
}

type stateRLP struct {
	Seed    []byte
	Xpub    string
	Counter uint32
}

// Wallet owns the persisted derivation state of one node.
type Wallet struct {
	mu sync.RWMutex

	params chainparams.Params
	db     ethdb.KeyValueStore
	rand   io.Reader

	seed []byte
	cur  *State

	log *logrus.Entry
}

// Open loads the wallet stored in db, if any. rand supplies seed entropy on
// the first Init.
func Open(db ethdb.KeyValueStore, params chainparams.Params, rand io.Reader, log *logrus.Entry) (*Wallet, error) {
	w := &Wallet{
		params: params,
		db:     db,
		rand:   rand,
		log:    log.WithField("module", "wallet"),
	}

	if ok, err := db.Has(stateKey); err != nil || !ok {
		return w, err
	}
	raw, err := db.Get(stateKey)
	if err != nil {
		return nil, err
	}
	var enc stateRLP
	if err := rlp.DecodeBytes(raw, &enc); err != nil {
		return nil, fmt.Errorf("decode wallet state: %w", err)
	}
	st, err := w.derive(enc.Seed, enc.Xpub, enc.Counter)
	if err != nil {
		return nil, fmt.Errorf("restore wallet state: %w", err)
	}
	w.seed, w.cur = enc.Seed, st
	w.log.WithFields(logrus.Fields{"path": st.DerivationPath}).Info("Pegout wallet loaded")
	return w, nil
}

// Current returns the derived state, or ErrNotInitialized.
func (w *Wallet) Current() (*State, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.cur == nil {
		return nil, ErrNotInitialized
	}
	return w.cur, nil
}

// Init validates xpub and sets up the derivation at counter. When counter is
// nil the persisted counter is kept, also across a change of xpub, and a
// first initialization starts at 0. On error nothing changes.
func (w *Wallet) Init(xpub string, counter *int64) (*State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkXpub(xpub); err != nil {
		return nil, err
	}

	var next uint32
	switch {
	case counter != nil:
		if *counter < 0 || *counter > w.params.MaxCounter {
			return nil, ErrCounterOutOfRange
		}
		next = uint32(*counter)
	case w.cur != nil:
		next = w.cur.Counter
	}

	seed := w.seed
	if seed == nil {
		seed = make([]byte, hdkeychain.RecommendedSeedLen)
		if _, err := io.ReadFull(w.rand, seed); err != nil {
			return nil, fmt.Errorf("generate wallet seed: %w", err)
		}
	}

	st, err := w.derive(seed, xpub, next)
	if err != nil {
		return nil, err
	}
	if err := w.persist(seed, st); err != nil {
		return nil, err
	}
	w.seed, w.cur = seed, st
	w.log.WithFields(logrus.Fields{"path": st.DerivationPath, "pakentry": st.PakEntry()}).Info("Pegout wallet initialized")
	return st, nil
}

// Next derives the state following the current one without applying it.
func (w *Wallet) Next() (*State, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.cur == nil {
		return nil, ErrNotInitialized
	}
	if int64(w.cur.Counter) >= w.params.MaxCounter {
		return nil, ErrCounterOutOfRange
	}
	return w.derive(w.seed, w.cur.Xpub, w.cur.Counter+1)
}

// Advance applies a state obtained from Next. It fails if the wallet moved
// in between.
func (w *Wallet) Advance(next *State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil || next.Xpub != w.cur.Xpub || next.Counter != w.cur.Counter+1 {
		return fmt.Errorf("stale wallet state %s", next.DerivationPath)
	}
	if err := w.persist(w.seed, next); err != nil {
		return err
	}
	w.cur = next
	w.log.WithField("path", next.DerivationPath).Debug("Pegout wallet advanced")
	return nil
}

func (w *Wallet) checkXpub(xpub string) error {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidXpub, err)
	}
	if !key.IsForNet(w.params.Mainchain) {
		return ErrWrongNetwork
	}
	if key.IsPrivate() {
		return ErrInvalidXpub
	}
	return nil
}

// derive computes the full state for (seed, xpub, counter).
func (w *Wallet) derive(seed []byte, xpub string, counter uint32) (*State, error) {
	master, err := hdkeychain.NewMaster(seed, w.params.Mainchain)
	if err != nil {
		return nil, err
	}
	liquid, err := deriveExternal(master, counter)
	if err != nil {
		return nil, err
	}
	liquidPak, err := liquid.ECPrivKey()
	if err != nil {
		return nil, err
	}

	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXpub, err)
	}
	xpubKey, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}

	lookahead := make([]btcutil.Address, w.params.Lookahead)
	for i := range lookahead {
		child, err := deriveExternal(key, counter+uint32(i))
		if err != nil {
			return nil, err
		}
		pub, err := child.ECPubKey()
		if err != nil {
			return nil, err
		}
		addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), w.params.Mainchain)
		if err != nil {
			return nil, err
		}
		lookahead[i] = addr
	}

	return &State{
		Xpub:             xpub,
		Counter:          counter,
		DerivationPath:   "/0/" + strconv.FormatUint(uint64(counter), 10),
		LiquidPak:        liquidPak,
		OnlineKey:        pak.PubKeyFromBTCEC(liquidPak.PubKey()),
		OfflineKey:       pak.PubKeyFromBTCEC(xpubKey).Negate(),
		AddressLookahead: lookahead,
	}, nil
}

// deriveExternal walks the non-hardened path /0/index.
func deriveExternal(key *hdkeychain.ExtendedKey, index uint32) (*hdkeychain.ExtendedKey, error) {
	branch, err := key.Derive(0)
	if err != nil {
		return nil, err
	}
	return branch.Derive(index)
}

func (w *Wallet) persist(seed []byte, st *State) error {
	enc, err := rlp.EncodeToBytes(&stateRLP{Seed: seed, Xpub: st.Xpub, Counter: st.Counter})
	if err != nil {
		return err
	}
	return w.db.Put(stateKey, enc)
}
