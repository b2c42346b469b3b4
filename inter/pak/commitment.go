package pak

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// Commitment wire form:
//
//	reject:  magic | "REJECT"
//	entries: magic | compact-size N | N x (online[33] | offline[33])
//
// The compact-size count is the Bitcoin varint and must be minimally encoded.
var (
	commitmentMagic   = []byte{0xab, 0x22, 0xaa, 0xee}
	commitmentReject  = []byte("REJECT")
	entryEncodingSize = 2 * PubKeySize
)

var (
	// ErrMalformedCommitment is returned for truncated, over-length or otherwise
	// undecodable commitment bytes. A block carrying one is rejected.
	ErrMalformedCommitment = errors.New("malformed PAK commitment")
	// ErrUndefinedCommitment is returned when asked to encode Undefined, which is
	// a local-only state.
	ErrUndefinedCommitment = errors.New("undefined PAK list cannot be committed")
)

// EncodeCommitment serializes a Reject or Entries list for embedding in a block.
func EncodeCommitment(l List) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(commitmentMagic)
	switch l.kind {
	case Reject:
		buf.Write(commitmentReject)
	case Entries:
		if err := wire.WriteVarInt(&buf, 0, uint64(len(l.entries))); err != nil {
			return nil, err
		}
		for _, e := range l.entries {
			buf.Write(e.Online[:])
			buf.Write(e.Offline[:])
		}
	default:
		return nil, ErrUndefinedCommitment
	}
	return buf.Bytes(), nil
}

// MustEncodeCommitment panics on Undefined; for callers that already checked.
func MustEncodeCommitment(l List) []byte {
	b, err := EncodeCommitment(l)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeCommitment parses commitment bytes. It never returns Undefined.
func DecodeCommitment(raw []byte) (List, error) {
	if !bytes.HasPrefix(raw, commitmentMagic) {
		return List{}, fmt.Errorf("%w: missing magic", ErrMalformedCommitment)
	}
	body := raw[len(commitmentMagic):]
	if bytes.Equal(body, commitmentReject) {
		return RejectList(), nil
	}

	r := bytes.NewReader(body)
	n, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return List{}, fmt.Errorf("%w: entry count: %v", ErrMalformedCommitment, err)
	}
	if n == 0 || n > MaxEntries {
		return List{}, fmt.Errorf("%w: entry count %d", ErrMalformedCommitment, n)
	}
	if uint64(r.Len()) != n*uint64(entryEncodingSize) {
		return List{}, fmt.Errorf("%w: have %d key bytes for %d entries", ErrMalformedCommitment, r.Len(), n)
	}

	entries := make([]Entry, n)
	row := make([]byte, entryEncodingSize)
	for i := range entries {
		// Length was checked above, a short read cannot happen.
		_, _ = r.Read(row)
		online, err := PubKeyFromBytes(row[:PubKeySize])
		if err != nil {
			return List{}, fmt.Errorf("%w: entry %d online key: %v", ErrMalformedCommitment, i, err)
		}
		offline, err := PubKeyFromBytes(row[PubKeySize:])
		if err != nil {
			return List{}, fmt.Errorf("%w: entry %d offline key: %v", ErrMalformedCommitment, i, err)
		}
		entries[i] = NewEntry(online, offline)
	}
	return NewList(entries)
}
