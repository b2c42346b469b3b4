package pak

import (
	"errors"
	"fmt"
	"strings"
)

// EntryStringPrefix starts the registration string a wallet hands out for
// insertion into another node's configuration.
const EntryStringPrefix = "pak="

// ErrInvalidEntryString is returned for registration strings that are not
// "<offline_hex>:<online_hex>" (optionally prefixed with "pak=").
var ErrInvalidEntryString = errors.New("invalid pak entry string")

// Entry is one whitelist row. Online authorizes issuing pegouts; Offline is
// the cold-storage recovery key. Entries are values and never mutated.
type Entry struct {
	Online  PubKey
	Offline PubKey
}

// NewEntry builds an entry from its two keys.
func NewEntry(online, offline PubKey) Entry {
	return Entry{Online: online, Offline: offline}
}

// String renders the registration string, offline key first.
func (e Entry) String() string {
	return EntryStringPrefix + e.Offline.String() + ":" + e.Online.String()
}

// ParseEntry accepts "pak=<offline>:<online>" or the bare "<offline>:<online>"
// form used by the -pak flag.
func ParseEntry(s string) (Entry, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), EntryStringPrefix)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntryString, s)
	}
	offline, err := PubKeyFromHex(parts[0])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: offline key: %v", ErrInvalidEntryString, err)
	}
	online, err := PubKeyFromHex(parts[1])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: online key: %v", ErrInvalidEntryString, err)
	}
	return NewEntry(online, offline), nil
}
