package inter

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-pak-sidechain/inter/pak"
)

// PegoutTx is a withdrawal from the sidechain to a mainchain destination.
// OnlineKey is the PAK online key the sender claims authorizes the pegout;
// the authorization gate checks it against the active policy.
type PegoutTx struct {
	OnlineKey   pak.PubKey
	Amount      btcutil.Amount
	Destination string // mainchain address
	Counter     uint32 // derivation counter that produced OnlineKey and Destination
}

// pegoutTxRLP is the canonical encoding hashed into the id. Amount is carried
// unsigned because rlp has no signed integers.
type pegoutTxRLP struct {
	OnlineKey   []byte
	Amount      uint64
	Destination string
	Counter     uint32
}

// ID is the transaction id used by the pending set and by blocks.
func (tx *PegoutTx) ID() hash.Hash {
	enc, err := rlp.EncodeToBytes(&pegoutTxRLP{
		OnlineKey:   tx.OnlineKey.Bytes(),
		Amount:      uint64(tx.Amount),
		Destination: tx.Destination,
		Counter:     tx.Counter,
	})
	if err != nil {
		// Encoding plain byte strings and integers cannot fail.
		panic(err)
	}
	return hash.Of(enc)
}
