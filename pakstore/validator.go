package pakstore

import (
	"errors"

	"github.com/rony4d/go-pak-sidechain/inter/pak"
)

// Block rejection reasons. The messages are what operators and RPC callers see.
var (
	ErrMissingRequiredCommitment = errors.New("Proposal does not have required PAK commitment.")
	ErrCommitmentMismatch        = errors.New("Proposal PAK commitment and config PAK do not match.")
)

// CheckCommitment decides whether a candidate block's commitment is acceptable
// to a node with the given policy while active is in force. commitment is nil
// when the block carries none; undecodable bytes fail with
// pak.ErrMalformedCommitment. It is a pure function and may be called
// concurrently for different candidates.
//
// A node that does not enforce accepts everything. A node enforcing with an
// Undefined configuration has nothing to compare against and accepts
// everything as well.
func CheckCommitment(policy NodePolicy, active pak.List, commitment []byte) error {
	if !policy.Enforce || policy.Configured.IsUndefined() {
		return nil
	}

	if commitment == nil {
		if policy.Configured.Equal(active) {
			return nil
		}
		return ErrMissingRequiredCommitment
	}

	proposed, err := pak.DecodeCommitment(commitment)
	if err != nil {
		return err
	}
	if !proposed.Equal(policy.Configured) {
		return ErrCommitmentMismatch
	}
	return nil
}
