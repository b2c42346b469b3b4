package txpool

import (
	"errors"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pak-sidechain/inter"
	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/pakstore"
)

// ErrAlreadyKnown is returned when a transaction with the same id is pending.
var ErrAlreadyKnown = errors.New("already known")

// Pool is the set of pending pegout transactions, kept in arrival order.
//
// Readers never observe a partially reconciled pool: Reconcile builds the
// surviving set aside and swaps it in under the write lock.
type Pool struct {
	mu    sync.RWMutex
	all   map[hash.Hash]*inter.PegoutTx
	order []hash.Hash

	log *logrus.Entry
}

// New creates an empty pool.
func New(log *logrus.Entry) *Pool {
	return &Pool{
		all: make(map[hash.Hash]*inter.PegoutTx),
		log: log.WithField("module", "txpool"),
	}
}

// Add authorizes tx against active and, on success, makes it pending.
func (p *Pool) Add(policy pakstore.NodePolicy, active pak.List, tx *inter.PegoutTx) error {
	id := tx.ID()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.all[id]; ok {
		return ErrAlreadyKnown
	}
	if err := Authorize(policy, active, tx); err != nil {
		p.log.WithFields(logrus.Fields{"tx": id, "reason": err}).Debug("Pegout rejected")
		return err
	}
	p.all[id] = tx
	p.order = append(p.order, id)
	p.log.WithFields(logrus.Fields{"tx": id, "amount": tx.Amount}).Debug("Pegout admitted")
	return nil
}

// Has reports whether a transaction is pending.
func (p *Pool) Has(id hash.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.all[id]
	return ok
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Pending returns the pending transactions in arrival order.
func (p *Pool) Pending() []*inter.PegoutTx {
	p.mu.RLock()
	defer p.mu.RUnlock()
	txs := make([]*inter.PegoutTx, len(p.order))
	for i, id := range p.order {
		txs[i] = p.all[id]
	}
	return txs
}

// Remove drops the given transactions, typically because a block mined them.
// Unknown ids are ignored. It returns how many were removed.
func (p *Pool) Remove(txs []*inter.PegoutTx) int {
	if len(txs) == 0 {
		return 0
	}
	drop := make(map[hash.Hash]struct{}, len(txs))
	for _, tx := range txs {
		drop[tx.ID()] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.filter(func(id hash.Hash, _ *inter.PegoutTx) bool {
		_, gone := drop[id]
		return !gone
	}))
}

// Reconcile re-authorizes every pending transaction against a new active list
// and evicts the ones that no longer pass, all in one step. It returns the
// evicted transactions.
func (p *Pool) Reconcile(policy pakstore.NodePolicy, active pak.List) []*inter.PegoutTx {
	p.mu.Lock()
	defer p.mu.Unlock()

	evicted := p.filter(func(_ hash.Hash, tx *inter.PegoutTx) bool {
		return Authorize(policy, active, tx) == nil
	})
	if len(evicted) != 0 {
		p.log.WithFields(logrus.Fields{
			"evicted": len(evicted),
			"pending": len(p.order),
			"active":  active,
		}).Info("Evicted unauthorized pegouts")
	}
	return evicted
}

// filter keeps the transactions for which keep returns true and returns the
// rest. The caller must hold the write lock.
func (p *Pool) filter(keep func(hash.Hash, *inter.PegoutTx) bool) []*inter.PegoutTx {
	var (
		dropped []*inter.PegoutTx
		all     = make(map[hash.Hash]*inter.PegoutTx, len(p.all))
		order   = make([]hash.Hash, 0, len(p.order))
	)
	for _, id := range p.order {
		tx := p.all[id]
		if keep(id, tx) {
			all[id] = tx
			order = append(order, id)
		} else {
			dropped = append(dropped, tx)
		}
	}
	p.all, p.order = all, order
	return dropped
}
