// Package inter defines the sidechain data structures the PAK subsystem
// consumes from its collaborators: candidate blocks with an optional PAK
// commitment, and pegout transactions carrying a declared online key.
//
// Key concepts:
//   - Block: a candidate or connected sidechain block. Commitment is nil when
//     the proposer is not signalling a policy transition.
//   - PegoutTx: a withdrawal to the mainchain. Only the fields the
//     authorization gate needs are modelled.
//
// Usage:
//
//	block := &inter.Block{Number: tip + 1, ParentHash: tipHash, Commitment: blob}
//	id := block.Hash()
package inter

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// Block is a sidechain block as seen by the PAK subsystem.
type Block struct {
	// Number is the height; genesis is 0.
	Number idx.Block

	// ParentHash links the block to the tip it extends.
	ParentHash hash.Hash

	// Commitment is the encoded PAK list (see pak.EncodeCommitment) or nil.
	// A non-nil empty slice is a present-but-malformed commitment.
	Commitment []byte

	// Pegouts are the pegout transactions mined in this block.
	Pegouts []*PegoutTx
}

// HasCommitment reports whether the block carries a PAK commitment.
func (b *Block) HasCommitment() bool {
	return b.Commitment != nil
}

// Hash identifies the block. It covers the parent, the height, the
// commitment (with a presence flag so nil and empty differ) and the ids of
// the mined pegouts in order. The commitment and the pegout list are
// length-prefixed so bytes cannot move between them.
func (b *Block) Hash() hash.Hash {
	flag := []byte{0}
	if b.HasCommitment() {
		flag[0] = 1
	}
	parts := [][]byte{
		b.ParentHash.Bytes(),
		bigendian.Uint64ToBytes(uint64(b.Number)),
		flag,
		bigendian.Uint32ToBytes(uint32(len(b.Commitment))),
		b.Commitment,
		bigendian.Uint32ToBytes(uint32(len(b.Pegouts))),
	}
	for _, tx := range b.Pegouts {
		parts = append(parts, tx.ID().Bytes())
	}
	return hash.Of(parts...)
}

// GenesisHash is the fixed id of the height-0 block every chain starts from.
var GenesisHash = (&Block{}).Hash()
