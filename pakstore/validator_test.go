package pakstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-pak-sidechain/inter/pak"
)

func TestCheckCommitment(t *testing.T) {
	pak1 := testList(1, 2)
	pak2 := testList(3)
	reject := pak.RejectList()

	enc1 := pak.MustEncodeCommitment(pak1)
	enc1Swapped := pak.MustEncodeCommitment(testList(2, 1))
	encReject := pak.MustEncodeCommitment(reject)
	malformed := []byte{0xab, 0x22, 0xaa, 0xee, 0x01}

	tests := []struct {
		name       string
		policy     NodePolicy
		active     pak.List
		commitment []byte
		want       error
	}{
		// Non-enforcing and undefined-configured nodes accept anything.
		{"novalidate/none", NodePolicy{pak1, false}, reject, nil, nil},
		{"novalidate/other", NodePolicy{pak1, false}, reject, pak.MustEncodeCommitment(pak2), nil},
		{"novalidate/malformed", NodePolicy{pak1, false}, reject, malformed, nil},
		{"undefined/none", NodePolicy{pak.UndefinedList(), true}, reject, nil, nil},
		{"undefined/any", NodePolicy{pak.UndefinedList(), true}, pak1, encReject, nil},

		// No commitment: accepted iff configured equals active.
		{"none/at rest", NodePolicy{pak1, true}, pak1, nil, nil},
		{"none/reject at rest", NodePolicy{reject, true}, reject, nil, nil},
		{"none/transition pending", NodePolicy{pak1, true}, reject, nil, ErrMissingRequiredCommitment},
		{"none/reordered active", NodePolicy{pak1, true}, testList(2, 1), nil, ErrMissingRequiredCommitment},

		// Commitment: accepted iff it equals configured.
		{"commit/match", NodePolicy{pak1, true}, reject, enc1, nil},
		{"commit/match at rest", NodePolicy{pak1, true}, pak1, enc1, nil},
		{"commit/reject match", NodePolicy{reject, true}, pak1, encReject, nil},
		{"commit/other list", NodePolicy{pak2, true}, reject, enc1, ErrCommitmentMismatch},
		{"commit/order matters", NodePolicy{pak1, true}, reject, enc1Swapped, ErrCommitmentMismatch},
		{"commit/reject vs list", NodePolicy{reject, true}, reject, enc1, ErrCommitmentMismatch},
		{"commit/list vs reject", NodePolicy{pak1, true}, pak1, encReject, ErrCommitmentMismatch},
		{"commit/malformed", NodePolicy{pak1, true}, reject, malformed, pak.ErrMalformedCommitment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCommitment(tt.policy, tt.active, tt.commitment)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRejectionReasons(t *testing.T) {
	require.Equal(t, "Proposal does not have required PAK commitment.", ErrMissingRequiredCommitment.Error())
	require.Equal(t, "Proposal PAK commitment and config PAK do not match.", ErrCommitmentMismatch.Error())
}
