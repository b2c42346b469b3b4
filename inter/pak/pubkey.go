// Package pak holds the Pegout Authorization Key data model: the compressed
// secp256k1 keys that make up a whitelist entry, the three-state List
// (Undefined, Reject, Entries) and the compact commitment form a List takes
// when it is embedded in a block.
//
// Usage:
//
//	online, _ := pak.PubKeyFromHex("02fcba7e...")
//	offline, _ := pak.PubKeyFromHex("02a28b30...")
//	list, _ := pak.NewList([]pak.Entry{pak.NewEntry(online, offline)})
//	blob, _ := pak.EncodeCommitment(list)
package pak

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
)

// PubKeySize is the length of a compressed secp256k1 point.
const PubKeySize = btcec.PubKeyBytesLenCompressed

var errInvalidPubKey = errors.New("invalid compressed secp256k1 public key")

// PubKey is a compressed secp256k1 public key. The zero value is not a valid
// key; every constructor validates that the bytes encode a point on the curve.
type PubKey [PubKeySize]byte

// PubKeyFromBytes validates b as a compressed point and copies it into a PubKey.
// Uncompressed and hybrid encodings are refused even though they are valid
// points, because the commitment form is fixed-width.
func PubKeyFromBytes(b []byte) (PubKey, error) {
	var pk PubKey
	if len(b) != PubKeySize || (b[0] != 0x02 && b[0] != 0x03) {
		return pk, fmt.Errorf("%w: got %d bytes", errInvalidPubKey, len(b))
	}
	if _, err := btcec.ParsePubKey(b); err != nil {
		return pk, fmt.Errorf("%w: %v", errInvalidPubKey, err)
	}
	copy(pk[:], b)
	return pk, nil
}

// PubKeyFromHex parses a hex string, with or without "0x" prefix.
func PubKeyFromHex(s string) (PubKey, error) {
	if len(s) == 0 {
		return PubKey{}, errors.New("empty pubkey")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if !isHex(s) {
		return PubKey{}, fmt.Errorf("%w: not hex", errInvalidPubKey)
	}
	return PubKeyFromBytes(common.Hex2Bytes(s))
}

// PubKeyFromBTCEC converts a parsed btcec key.
func PubKeyFromBTCEC(k *btcec.PublicKey) PubKey {
	var pk PubKey
	copy(pk[:], k.SerializeCompressed())
	return pk
}

// Negate returns the point with the opposite y coordinate. For a compressed
// key that is exactly a flip of the parity prefix.
func (pk PubKey) Negate() PubKey {
	neg := pk
	neg[0] ^= 0x01
	return neg
}

// Bytes returns a copy of the raw 33 bytes.
func (pk PubKey) Bytes() []byte {
	return common.CopyBytes(pk[:])
}

// String renders the key as plain lowercase hex, the form used in
// configuration and in the policy report.
func (pk PubKey) String() string {
	return common.Bytes2Hex(pk[:])
}

// MarshalText implements encoding.TextMarshaler.
func (pk PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := PubKeyFromHex(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for _, c := range []byte(s) {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
