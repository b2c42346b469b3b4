package integration

import (
	"fmt"
	"math/rand"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pak-sidechain/chainparams"
	"github.com/rony4d/go-pak-sidechain/inter"
	"github.com/rony4d/go-pak-sidechain/node"
)

// Federation is a set of nodes sharing one chain. Block relay is simulated by
// connecting every accepted block on every node.
type Federation struct {
	params chainparams.Params
	log    *logrus.Entry

	names []string
	nodes map[string]*node.Node
	dbs   map[string]ethdb.KeyValueStore
	seeds map[string]int64
}

// NewFederation starts one in-memory node per preset. Wallet seeds are
// deterministic per node so runs are reproducible.
func NewFederation(params chainparams.Params, log *logrus.Entry, presets ...Preset) (*Federation, error) {
	f := &Federation{
		params: params,
		log:    log,
		nodes:  make(map[string]*node.Node, len(presets)),
		dbs:    make(map[string]ethdb.KeyValueStore, len(presets)),
		seeds:  make(map[string]int64, len(presets)),
	}
	for i, p := range presets {
		if _, ok := f.nodes[p.Name]; ok {
			return nil, fmt.Errorf("duplicate node name %q", p.Name)
		}
		f.names = append(f.names, p.Name)
		f.dbs[p.Name] = memorydb.New()
		f.seeds[p.Name] = int64(i + 1)
		if err := f.start(p); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Federation) start(p Preset) error {
	n, err := node.New(f.dbs[p.Name], node.Config{
		Name:   p.Name,
		Params: f.params,
		Policy: p.Policy,
	}, rand.New(rand.NewSource(f.seeds[p.Name])), f.log)
	if err != nil {
		return fmt.Errorf("start %s: %w", p.Name, err)
	}
	f.nodes[p.Name] = n
	return nil
}

// Node returns the named node, or nil.
func (f *Federation) Node(name string) *node.Node {
	return f.nodes[name]
}

// Names lists the nodes in the order they were configured.
func (f *Federation) Names() []string {
	return append([]string(nil), f.names...)
}

// Restart reopens a node on its existing storage with a new policy, the way
// an operator changes the startup configuration. The pending set is lost.
func (f *Federation) Restart(p Preset) error {
	if _, ok := f.nodes[p.Name]; !ok {
		return fmt.Errorf("unknown node %q", p.Name)
	}
	return f.start(p)
}

// TestProposal asks every node whether it would accept b. The result maps
// node names to the rejection reason, nil for acceptance.
func (f *Federation) TestProposal(b *inter.Block) map[string]error {
	res := make(map[string]error, len(f.names))
	for _, name := range f.names {
		res[name] = f.nodes[name].TestProposal(b)
	}
	return res
}

// Submit hands b to the named node and, once it accepts, relays it to the
// rest of the federation.
func (f *Federation) Submit(name string, b *inter.Block) error {
	n := f.nodes[name]
	if n == nil {
		return fmt.Errorf("unknown node %q", name)
	}
	if err := n.SubmitBlock(b); err != nil {
		return err
	}
	return f.Sync(b)
}

// Generate lets the named node build a block on its tip, carrying its own
// pending pegouts, and submits it.
func (f *Federation) Generate(name string) (*inter.Block, error) {
	n := f.nodes[name]
	if n == nil {
		return nil, fmt.Errorf("unknown node %q", name)
	}
	b := n.NewBlock(n.Pending()...)
	return b, f.Submit(name, b)
}

// Sync connects b on every node that has not connected it yet.
func (f *Federation) Sync(b *inter.Block) error {
	id := b.Hash()
	for _, name := range f.names {
		n := f.nodes[name]
		if _, tip := n.Tip(); tip == id {
			continue
		}
		if err := n.ConnectBlock(b); err != nil {
			return fmt.Errorf("sync %s: %w", name, err)
		}
	}
	return nil
}

// Relay offers a pegout to every node's pending set and returns the outcome
// per node.
func (f *Federation) Relay(tx *inter.PegoutTx) map[string]error {
	res := make(map[string]error, len(f.names))
	for _, name := range f.names {
		res[name] = f.nodes[name].SubmitPegout(tx)
	}
	return res
}
