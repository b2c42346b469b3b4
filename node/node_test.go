package node

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-pak-sidechain/chainparams"
	"github.com/rony4d/go-pak-sidechain/inter"
	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/pakstore"
	"github.com/rony4d/go-pak-sidechain/txpool"
	"github.com/rony4d/go-pak-sidechain/wallet"
)

const regtestXpub = "tpubD6NzVbkrYhZ4WaWSyoBvQwbpLkojyoTZPRsgXELWz3Popb3qkjcJyJUGLnL4qHHoQvao8ESaAstxYSnhyswJ76uZPStJRJCTKvosUCJZL5B"

func testKey(i byte) pak.PubKey {
	var scalar [32]byte
	scalar[31] = i
	_, pub := btcec.PrivKeyFromBytes(scalar[:])
	return pak.PubKeyFromBTCEC(pub)
}

func testList(ids ...byte) pak.List {
	entries := make([]pak.Entry, len(ids))
	for i, id := range ids {
		entries[i] = pak.NewEntry(testKey(id), testKey(id+100))
	}
	return pak.MustNewList(entries...)
}

func newTestNode(t *testing.T, db ethdb.KeyValueStore, policy pakstore.NodePolicy) *Node {
	t.Helper()
	l, _ := logtest.NewNullLogger()
	n, err := New(db, Config{Name: t.Name(), Params: chainparams.RegTestParams(), Policy: policy}, rand.New(rand.NewSource(1)), logrus.NewEntry(l))
	require.NoError(t, err)
	return n
}

func enforcing(l pak.List) pakstore.NodePolicy {
	return pakstore.NodePolicy{Configured: l, Enforce: true}
}

func pegout(key byte) *inter.PegoutTx {
	return &inter.PegoutTx{OnlineKey: testKey(key), Amount: chainparams.MinPegoutAmount, Destination: "dest"}
}

func TestNewBlock(t *testing.T) {
	tests := []struct {
		name   string
		policy pakstore.NodePolicy
		commit pak.List // Undefined for no commitment
	}{
		{"novalidate", pakstore.NodePolicy{Configured: testList(1)}, pak.UndefinedList()},
		{"undefined", enforcing(pak.UndefinedList()), pak.UndefinedList()},
		{"reject at rest", enforcing(pak.RejectList()), pak.UndefinedList()},
		{"transition", enforcing(testList(1, 2)), testList(1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			n := newTestNode(t, memorydb.New(), tt.policy)

			b := n.NewBlock(pegout(1))
			require.Equal(inter.GenesisHash, b.ParentHash)
			require.EqualValues(1, b.Number)
			require.Len(b.Pegouts, 1)
			if tt.commit.IsUndefined() {
				require.Nil(b.Commitment)
			} else {
				require.Equal(pak.MustEncodeCommitment(tt.commit), b.Commitment)
			}
			require.NoError(n.TestProposal(b), "own proposals are acceptable")
		})
	}
}

func TestSubmitBlock(t *testing.T) {
	require := require.New(t)
	pak1 := testList(1, 2)
	n := newTestNode(t, memorydb.New(), enforcing(pak1))

	// A block without commitment while a transition is pending.
	bare := &inter.Block{Number: 1, ParentHash: inter.GenesisHash}
	require.ErrorIs(n.TestProposal(bare), pakstore.ErrMissingRequiredCommitment)
	require.ErrorIs(n.SubmitBlock(bare), pakstore.ErrMissingRequiredCommitment)

	wrong := &inter.Block{Number: 1, ParentHash: inter.GenesisHash, Commitment: pak.MustEncodeCommitment(testList(3))}
	require.ErrorIs(n.SubmitBlock(wrong), pakstore.ErrCommitmentMismatch)

	orphan := n.NewBlock()
	orphan.Number = 2
	require.ErrorIs(n.TestProposal(orphan), ErrUnknownParent)

	// Testing leaves state alone; submitting transitions.
	b := n.NewBlock()
	require.NoError(n.TestProposal(b))
	require.True(n.Active().IsReject())
	require.NoError(n.SubmitBlock(b))
	require.True(n.Active().Equal(pak1))
	height, tip := n.Tip()
	require.EqualValues(1, height)
	require.Equal(b.Hash(), tip)

	// At rest the next block carries no commitment and is accepted.
	next := n.NewBlock()
	require.Nil(next.Commitment)
	require.NoError(n.SubmitBlock(next))
}

func TestConnectBlockSkipsPolicy(t *testing.T) {
	require := require.New(t)
	n := newTestNode(t, memorydb.New(), enforcing(testList(2)))

	b := &inter.Block{Number: 1, ParentHash: inter.GenesisHash, Commitment: pak.MustEncodeCommitment(testList(1))}
	require.ErrorIs(n.SubmitBlock(b), pakstore.ErrCommitmentMismatch)
	require.NoError(n.ConnectBlock(b))
	require.True(n.Active().Equal(testList(1)))

	junk := &inter.Block{Number: 2, ParentHash: b.Hash(), Commitment: []byte{1, 2, 3}}
	require.ErrorIs(n.ConnectBlock(junk), pak.ErrMalformedCommitment)
	require.ErrorIs(n.ConnectBlock(&inter.Block{Number: 2}), ErrUnknownParent)
}

func TestPegoutAdmissionAndEviction(t *testing.T) {
	require := require.New(t)
	pak12 := testList(1, 2)
	n := newTestNode(t, memorydb.New(), enforcing(pak12))

	require.ErrorIs(n.AuthorizePegout(pegout(1)), txpool.ErrPegoutFreezeInEffect)
	require.ErrorIs(n.SubmitPegout(pegout(1)), txpool.ErrPegoutFreezeInEffect)

	require.NoError(n.SubmitBlock(n.NewBlock()))
	require.NoError(n.AuthorizePegout(pegout(1)))
	require.ErrorIs(n.AuthorizePegout(pegout(3)), txpool.ErrKeyNotInPakList)

	require.NoError(n.SubmitPegout(pegout(1)))
	require.NoError(n.SubmitPegout(pegout(2)))
	require.ErrorIs(n.SubmitPegout(pegout(2)), txpool.ErrAlreadyKnown)
	require.Len(n.Pending(), 2)

	// Mining removes the tx, a later freeze evicts the rest.
	mined := n.NewBlock(pegout(2))
	require.NoError(n.SubmitBlock(mined))
	require.True(n.HasPending(pegout(1).ID()))
	require.False(n.HasPending(pegout(2).ID()))

	freeze := &inter.Block{Number: 3, ParentHash: mined.Hash(), Commitment: pak.MustEncodeCommitment(pak.RejectList())}
	require.NoError(n.ConnectBlock(freeze))
	require.Empty(n.Pending())
	require.ErrorIs(n.AuthorizePegout(pegout(1)), txpool.ErrPegoutFreezeInEffect)
}

// TestFreezeRacesAdmission submits pegouts while a freeze is connected. Every
// submission either fails against the freeze or is evicted by it, so nothing
// authorized under the old list survives.
func TestFreezeRacesAdmission(t *testing.T) {
	const (
		rounds  = 50
		senders = 20
	)
	for round := 0; round < rounds; round++ {
		n := newTestNode(t, memorydb.New(), enforcing(testList(1, 2)))
		first := n.NewBlock()
		require.NoError(t, n.SubmitBlock(first))
		freeze := &inter.Block{Number: 2, ParentHash: first.Hash(), Commitment: pak.MustEncodeCommitment(pak.RejectList())}

		start := make(chan struct{})
		errs := make([]error, senders)
		var (
			wg         sync.WaitGroup
			connectErr error
		)
		for i := 0; i < senders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tx := pegout(1)
				tx.Counter = uint32(i)
				<-start
				errs[i] = n.SubmitPegout(tx)
			}(i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			connectErr = n.ConnectBlock(freeze)
		}()
		close(start)
		wg.Wait()

		require.NoError(t, connectErr)
		require.True(t, n.Active().IsReject())
		require.Empty(t, n.Pending(), "round %d", round)
		for _, err := range errs {
			if err != nil {
				require.ErrorIs(t, err, txpool.ErrPegoutFreezeInEffect)
			}
		}
	}
}

func TestReorg(t *testing.T) {
	require := require.New(t)
	pak1 := testList(1)
	n := newTestNode(t, memorydb.New(), enforcing(pak1))

	first := n.NewBlock()
	require.NoError(n.SubmitBlock(first))
	require.NoError(n.SubmitPegout(pegout(1)))

	freeze := &inter.Block{Number: 2, ParentHash: first.Hash(), Commitment: pak.MustEncodeCommitment(pak.RejectList())}
	require.NoError(n.ConnectBlock(freeze))
	require.True(n.Active().IsReject())
	require.Empty(n.Pending())

	// The competing branch undoes the freeze.
	alt := &inter.Block{Number: 2, ParentHash: first.Hash(), Pegouts: []*inter.PegoutTx{pegout(9)}}
	require.ErrorIs(n.Reorg(1, []*inter.Block{{Number: 2, ParentHash: freeze.Hash()}}), ErrUnknownParent)

	// Every branch block must extend the one before it.
	orphan := &inter.Block{Number: 3, ParentHash: inter.GenesisHash, Commitment: pak.MustEncodeCommitment(pak.RejectList())}
	require.ErrorIs(n.Reorg(1, []*inter.Block{alt, orphan}), ErrUnknownParent)
	_, tip := n.Tip()
	require.Equal(freeze.Hash(), tip, "rejected branch leaves the chain alone")
	require.True(n.Active().IsReject())

	require.NoError(n.Reorg(1, []*inter.Block{alt, {Number: 3, ParentHash: alt.Hash()}}))
	require.True(n.Active().Equal(pak1))
	height, _ := n.Tip()
	require.EqualValues(3, height)

	// Back to genesis: Reject again.
	require.NoError(n.SubmitPegout(pegout(1)))
	require.NoError(n.Reorg(0, nil))
	require.True(n.Active().IsReject())
	require.Empty(n.Pending())
}

func TestNonEnforcingNode(t *testing.T) {
	require := require.New(t)
	n := newTestNode(t, memorydb.New(), pakstore.NodePolicy{Configured: testList(1)})

	for _, b := range []*inter.Block{
		{Number: 1, ParentHash: inter.GenesisHash},
		{Number: 1, ParentHash: inter.GenesisHash, Commitment: pak.MustEncodeCommitment(testList(5))},
		{Number: 1, ParentHash: inter.GenesisHash, Commitment: []byte("garbage")},
	} {
		require.NoError(n.TestProposal(b))
	}
	require.NoError(n.AuthorizePegout(pegout(7)))
	require.NoError(n.SubmitPegout(pegout(7)))

	other := &inter.Block{Number: 1, ParentHash: inter.GenesisHash, Commitment: pak.MustEncodeCommitment(testList(5))}
	require.NoError(n.SubmitBlock(other))
	require.True(n.Active().Equal(testList(5)))

	freeze := &inter.Block{Number: 2, ParentHash: other.Hash(), Commitment: pak.MustEncodeCommitment(pak.RejectList())}
	require.NoError(n.SubmitBlock(freeze))
	require.True(n.Active().IsReject())
	require.True(n.HasPending(pegout(7).ID()), "non-enforcing nodes keep pegouts")
}

// walletNode initializes a wallet on db and restarts the node with its own
// pakentry configured, the way an operator registers a key.
func walletNode(t *testing.T, db ethdb.KeyValueStore) (*Node, *wallet.State) {
	t.Helper()
	n := newTestNode(t, db, enforcing(pak.RejectList()))
	st, err := n.InitWallet(regtestXpub, nil)
	require.NoError(t, err)

	entry, err := pak.ParseEntry(st.PakEntry())
	require.NoError(t, err)
	return newTestNode(t, db, enforcing(pak.MustNewList(entry))), st
}

func TestSendToMainchain(t *testing.T) {
	require := require.New(t)

	// The freeze is reported before a missing wallet.
	bare := newTestNode(t, memorydb.New(), enforcing(testList(1)))
	_, err := bare.SendToMainchain(chainparams.MinPegoutAmount)
	require.ErrorIs(err, txpool.ErrPegoutFreezeInEffect)
	require.NoError(bare.SubmitBlock(bare.NewBlock()))
	_, err = bare.SendToMainchain(chainparams.MinPegoutAmount)
	require.ErrorIs(err, wallet.ErrNotInitialized)

	n, st := walletNode(t, memorydb.New())

	_, err = n.SendToMainchain(chainparams.MinPegoutAmount - 1)
	require.ErrorIs(err, ErrBelowDustThreshold)
	require.Equal("Invalid amount for send, must send more than 1 millibit", err.Error())

	_, err = n.SendToMainchain(chainparams.MinPegoutAmount)
	require.ErrorIs(err, txpool.ErrPegoutFreezeInEffect)

	require.NoError(n.SubmitBlock(n.NewBlock()))
	tx, err := n.SendToMainchain(chainparams.MinPegoutAmount)
	require.NoError(err)
	require.Equal(st.OnlineKey, tx.OnlineKey)
	require.Equal(st.Lookahead()[0], tx.Destination)
	require.True(n.HasPending(tx.ID()))
	require.Equal("/0/1", n.QueryPolicy().DerivationPath)

	// The rotated key is not registered, so the next pegout is refused and
	// the counter stays put.
	_, err = n.SendToMainchain(chainparams.MinPegoutAmount)
	require.ErrorIs(err, txpool.ErrKeyNotInPakList)
	require.Equal("/0/1", n.QueryPolicy().DerivationPath)
	require.Len(n.Pending(), 1)
}

func TestQueryPolicy(t *testing.T) {
	require := require.New(t)

	undefined := newTestNode(t, memorydb.New(), enforcing(pak.UndefinedList()))
	raw, err := json.Marshal(undefined.QueryPolicy())
	require.NoError(err)
	require.JSONEq(`{"config_paklist":{},"block_paklist":{"online":[],"offline":[],"reject":true}}`, string(raw))

	n := newTestNode(t, memorydb.New(), enforcing(testList(1, 2)))
	require.NoError(n.SubmitBlock(n.NewBlock()))
	st, err := n.InitWallet(regtestXpub, nil)
	require.NoError(err)

	info := n.QueryPolicy()
	require.Equal(regtestXpub, info.Xpub)
	require.Equal("/0/0", info.DerivationPath)
	require.Equal(st.OnlineKey.String(), info.LiquidPak)
	require.Equal(st.Lookahead(), info.AddressLookahead)

	raw, err = json.Marshal(info.Active)
	require.NoError(err)
	var got struct {
		Online  []string `json:"online"`
		Offline []string `json:"offline"`
		Reject  bool     `json:"reject"`
	}
	require.NoError(json.Unmarshal(raw, &got))
	require.Equal([]string{testKey(1).String(), testKey(2).String()}, got.Online)
	require.Equal([]string{testKey(101).String(), testKey(102).String()}, got.Offline)
	require.False(got.Reject)

	res := NewWalletInitResult(st)
	require.Equal(st.PakEntry(), res.PakEntry)
	require.Equal(info.LiquidPak, res.LiquidPak)
	require.Equal(info.AddressLookahead, res.AddressLookahead)
}

func TestRestart(t *testing.T) {
	require := require.New(t)
	db := memorydb.New()

	n, _ := walletNode(t, db)
	require.NoError(n.SubmitBlock(n.NewBlock()))
	_, err := n.InitWallet(regtestXpub, func() *int64 { c := int64(2); return &c }())
	require.NoError(err)
	before := n.QueryPolicy()

	again := newTestNode(t, db, n.Policy())
	require.Equal(before, again.QueryPolicy())
	h1, tip1 := n.Tip()
	h2, tip2 := again.Tip()
	require.Equal(h1, h2)
	require.Equal(tip1, tip2)
}
