// Package txpool holds the pending pegout transactions of a node and the
// authorization gate they must pass against the active PAK list, both at
// admission and every time the active list changes.
package txpool

import (
	"errors"

	"github.com/rony4d/go-pak-sidechain/inter"
	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/pakstore"
)

// Pegout rejection reasons.
var (
	ErrPegoutFreezeInEffect = errors.New("Pegout freeze is under effect")
	ErrKeyNotInPakList      = errors.New("Given online key is not in Pegout Authorization Key List")
)

// Authorize checks a pegout's declared online key against active.
//
// A non-enforcing node authorizes everything. Otherwise Reject freezes all
// pegouts, a list requires the key to be one of its online keys, and an
// Undefined active list admits nothing. The node's configured list is not
// consulted: a node expecting a different list still relays pegouts the
// chain currently authorizes.
func Authorize(policy pakstore.NodePolicy, active pak.List, tx *inter.PegoutTx) error {
	if !policy.Enforce {
		return nil
	}
	switch active.Kind() {
	case pak.Reject:
		return ErrPegoutFreezeInEffect
	case pak.Entries:
		if active.ContainsOnline(tx.OnlineKey) {
			return nil
		}
	}
	return ErrKeyNotInPakList
}
