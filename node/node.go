// Package node wires the PAK subsystem of one sidechain node together: the
// policy store, the pending pegout pool and the pegout wallet, all serialized
// behind one lock so that every authorization decision observes a consistent
// (configured, active, pending) snapshot.
//
// Block checks that do not mutate state take the read lock and may run
// concurrently. Connecting a block, reorganizing and building a pegout take
// the write lock, so a transition of the active list and the eviction it
// triggers happen before any later authorization.
package node

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pak-sidechain/chainparams"
	"github.com/rony4d/go-pak-sidechain/inter"
	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/pakstore"
	"github.com/rony4d/go-pak-sidechain/txpool"
	"github.com/rony4d/go-pak-sidechain/wallet"
)

var (
	// ErrBelowDustThreshold is returned by SendToMainchain for amounts under
	// the network's minimum pegout.
	ErrBelowDustThreshold = errors.New("Invalid amount for send, must send more than 1 millibit")

	// ErrUnknownParent is returned for blocks that do not extend the tip.
	ErrUnknownParent = errors.New("block does not extend the best chain")
)

// Config is everything a node needs besides its storage.
type Config struct {
	// Name labels logs and metrics.
	Name string

	Params chainparams.Params
	Policy pakstore.NodePolicy
}

// Node is the PAK view of one running sidechain node.
type Node struct {
	mu sync.RWMutex

	name   string
	params chainparams.Params
	store  *pakstore.Store
	pool   *txpool.Pool
	wallet *wallet.Wallet

	log *logrus.Entry
}

// New opens the policy store and the wallet kept in db. rand seeds a new
// wallet on its first initialization.
func New(db ethdb.KeyValueStore, cfg Config, rand io.Reader, log *logrus.Entry) (*Node, error) {
	log = log.WithField("node", cfg.Name)

	store, err := pakstore.Open(db, cfg.Policy, log)
	if err != nil {
		return nil, fmt.Errorf("open PAK store: %w", err)
	}
	w, err := wallet.Open(db, cfg.Params, rand, log)
	if err != nil {
		return nil, fmt.Errorf("open pegout wallet: %w", err)
	}

	n := &Node{
		name:   cfg.Name,
		params: cfg.Params,
		store:  store,
		pool:   txpool.New(log),
		wallet: w,
		log:    log.WithField("module", "node"),
	}
	n.observeActive()
	return n, nil
}

// Name returns the configured node name.
func (n *Node) Name() string { return n.name }

// Policy returns the node's configured policy.
func (n *Node) Policy() pakstore.NodePolicy { return n.store.Policy() }

// Active returns the active PAK list.
func (n *Node) Active() pak.List {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store.Active()
}

// Tip returns the height and id of the best block.
func (n *Node) Tip() (idx.Block, hash.Hash) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store.Height(), n.store.TipHash()
}

// TestProposal runs the commitment check on a candidate without connecting it.
func (n *Node) TestProposal(b *inter.Block) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.checkProposal(b)
}

// SubmitBlock checks a block this node is asked to sign off on and connects
// it on success.
func (n *Node) SubmitBlock(b *inter.Block) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.checkProposal(b); err != nil {
		blocksRejected.WithLabelValues(n.name, reasonLabel(err)).Inc()
		n.log.WithFields(logrus.Fields{"block": b.Number, "reason": err}).Debug("Block rejected")
		return err
	}
	return n.connect(b)
}

// ConnectBlock appends a block the federation already accepted, e.g. during
// sync. The commitment check is a signing policy, so only linkage and a
// decodable commitment are required here.
func (n *Node) ConnectBlock(b *inter.Block) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.checkLink(b); err != nil {
		return err
	}
	return n.connect(b)
}

// Reorg replaces the chain above ancestor with branch and recomputes the
// active list from genesis.
func (n *Node) Reorg(ancestor idx.Block, branch []*inter.Block) error {
	recs := make([]pakstore.Record, len(branch))
	for i, b := range branch {
		recs[i] = pakstore.RecordOf(b)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if len(branch) != 0 {
		parent := inter.GenesisHash
		if ancestor > 0 {
			history := n.store.History()
			if int(ancestor) > len(history) {
				return fmt.Errorf("%w: ancestor %d", ErrUnknownParent, ancestor)
			}
			parent = history[ancestor-1].Hash
		}
		if branch[0].ParentHash != parent {
			return fmt.Errorf("%w: branch does not fork from block %d", ErrUnknownParent, ancestor)
		}
		for i := 1; i < len(branch); i++ {
			if branch[i].ParentHash != branch[i-1].Hash() {
				return fmt.Errorf("%w: branch block %d does not extend block %d", ErrUnknownParent, branch[i].Number, branch[i-1].Number)
			}
		}
	}

	changed, err := n.store.Reorg(ancestor, recs)
	if err != nil {
		return err
	}
	for _, b := range branch {
		n.pool.Remove(b.Pegouts)
	}
	if changed {
		n.onActiveChanged()
	}
	return nil
}

// AuthorizePegout checks a pegout against the active list without admitting it.
func (n *Node) AuthorizePegout(tx *inter.PegoutTx) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return txpool.Authorize(n.store.Policy(), n.store.Active(), tx)
}

// SubmitPegout authorizes a relayed pegout and admits it to the pending set.
func (n *Node) SubmitPegout(tx *inter.PegoutTx) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.admit(tx)
}

// Pending returns the pending pegouts in arrival order.
func (n *Node) Pending() []*inter.PegoutTx {
	return n.pool.Pending()
}

// HasPending reports whether the pegout is in the pending set.
func (n *Node) HasPending(id hash.Hash) bool {
	return n.pool.Has(id)
}

// NewBlock builds a candidate on top of the tip carrying txs. An enforcing
// node whose configured list differs from the active one commits to its
// configured list.
func (n *Node) NewBlock(txs ...*inter.PegoutTx) *inter.Block {
	n.mu.RLock()
	defer n.mu.RUnlock()

	b := &inter.Block{
		Number:     n.store.Height() + 1,
		ParentHash: n.store.TipHash(),
		Pegouts:    txs,
	}
	policy := n.store.Policy()
	if policy.Enforce && !policy.Configured.IsUndefined() && !policy.Configured.Equal(n.store.Active()) {
		b.Commitment = pak.MustEncodeCommitment(policy.Configured)
	}
	return b
}

// InitWallet sets up the pegout wallet. See wallet.Wallet.Init.
func (n *Node) InitWallet(xpub string, counter *int64) (*wallet.State, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.wallet.Init(xpub, counter)
}

// SendToMainchain builds a pegout of amount to the wallet's next mainchain
// address, signed off by the current liquid_pak, and admits it to the local
// pending set. The wallet moves to the next counter only on success.
func (n *Node) SendToMainchain(amount btcutil.Amount) (*inter.PegoutTx, error) {
	tx, err := n.sendToMainchain(amount)
	if err != nil {
		pegoutsRejected.WithLabelValues(n.name, reasonLabel(err)).Inc()
		return nil, err
	}
	return tx, nil
}

func (n *Node) sendToMainchain(amount btcutil.Amount) (*inter.PegoutTx, error) {
	if amount < n.params.MinPegoutAmount {
		return nil, ErrBelowDustThreshold
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	// The sender checks its own key regardless of enforcement: a pegout
	// other nodes would refuse is never built.
	active := n.store.Active()
	if active.IsReject() {
		return nil, txpool.ErrPegoutFreezeInEffect
	}
	cur, err := n.wallet.Current()
	if err != nil {
		return nil, err
	}
	if !active.ContainsOnline(cur.OnlineKey) {
		return nil, txpool.ErrKeyNotInPakList
	}
	next, err := n.wallet.Next()
	if err != nil {
		return nil, err
	}

	tx := &inter.PegoutTx{
		OnlineKey:   cur.OnlineKey,
		Amount:      amount,
		Destination: cur.Destination().EncodeAddress(),
		Counter:     cur.Counter,
	}
	if err := n.pool.Add(n.store.Policy(), active, tx); err != nil {
		return nil, err
	}
	if err := n.wallet.Advance(next); err != nil {
		n.pool.Remove([]*inter.PegoutTx{tx})
		return nil, err
	}
	pegoutsAdmitted.WithLabelValues(n.name).Inc()
	n.log.WithFields(logrus.Fields{
		"tx":          tx.ID(),
		"amount":      amount,
		"destination": tx.Destination,
		"path":        next.DerivationPath,
	}).Info("Pegout created")
	return tx, nil
}

// admit runs under at least the read lock.
func (n *Node) admit(tx *inter.PegoutTx) error {
	if err := n.pool.Add(n.store.Policy(), n.store.Active(), tx); err != nil {
		pegoutsRejected.WithLabelValues(n.name, reasonLabel(err)).Inc()
		return err
	}
	pegoutsAdmitted.WithLabelValues(n.name).Inc()
	return nil
}

func (n *Node) checkLink(b *inter.Block) error {
	if b.Number != n.store.Height()+1 || b.ParentHash != n.store.TipHash() {
		return fmt.Errorf("%w: block %d, tip %d", ErrUnknownParent, b.Number, n.store.Height())
	}
	return nil
}

func (n *Node) checkProposal(b *inter.Block) error {
	if err := n.checkLink(b); err != nil {
		return err
	}
	return pakstore.CheckCommitment(n.store.Policy(), n.store.Active(), b.Commitment)
}

// connect appends b and reconciles the pool. Caller holds the write lock.
func (n *Node) connect(b *inter.Block) error {
	changed, err := n.store.Append(pakstore.RecordOf(b))
	if err != nil {
		blocksRejected.WithLabelValues(n.name, reasonLabel(err)).Inc()
		return err
	}
	blocksAccepted.WithLabelValues(n.name).Inc()
	n.pool.Remove(b.Pegouts)
	if changed {
		n.onActiveChanged()
	}
	return nil
}

func (n *Node) onActiveChanged() {
	activeTransitions.WithLabelValues(n.name).Inc()
	n.observeActive()
	evicted := n.pool.Reconcile(n.store.Policy(), n.store.Active())
	pegoutsEvicted.WithLabelValues(n.name).Add(float64(len(evicted)))
}

func (n *Node) observeActive() {
	activeEntries.WithLabelValues(n.name).Set(float64(n.store.Active().Len()))
}
