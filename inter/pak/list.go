package pak

import (
	"errors"
	"fmt"
	"strings"
)

// MaxEntries bounds the whitelist size; it matches the largest key set a
// whitelist proof can range over.
const MaxEntries = 256

var (
	// ErrEmptyList is returned when an Entries list would have no rows.
	// An empty whitelist is spelled Reject or Undefined, never Entries([]).
	ErrEmptyList = errors.New("pak list must contain at least one entry")
	// ErrTooManyEntries is returned above MaxEntries rows.
	ErrTooManyEntries = errors.New("pak list has too many entries")
)

// Kind tags the variant held by a List.
type Kind uint8

const (
	// Undefined means no policy is configured; it never appears in a block.
	Undefined Kind = iota
	// Reject means no pegouts are permitted.
	Reject
	// Entries means pegouts are permitted to the listed online keys.
	Entries
)

// String names the variant.
func (k Kind) String() string {
	switch k {
	case Undefined:
		return "undefined"
	case Reject:
		return "reject"
	case Entries:
		return "entries"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// List is the three-state PAK policy. The zero value is Undefined. A List
// never holds an empty Entries variant, and its rows are never exposed for
// mutation, so a List can be shared freely between goroutines.
type List struct {
	kind    Kind
	entries []Entry
}

// UndefinedList returns the "no policy configured" value.
func UndefinedList() List {
	return List{}
}

// RejectList returns the pegout-freeze sentinel.
func RejectList() List {
	return List{kind: Reject}
}

// NewList builds an Entries list. Order is kept and duplicates are not folded:
// both are significant for equality and for the commitment bytes.
func NewList(entries []Entry) (List, error) {
	if len(entries) == 0 {
		return List{}, ErrEmptyList
	}
	if len(entries) > MaxEntries {
		return List{}, fmt.Errorf("%w: %d > %d", ErrTooManyEntries, len(entries), MaxEntries)
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return List{kind: Entries, entries: cp}, nil
}

// MustNewList is NewList for literals in tests and presets.
func MustNewList(entries ...Entry) List {
	l, err := NewList(entries)
	if err != nil {
		panic(err)
	}
	return l
}

// Kind reports the variant.
func (l List) Kind() Kind { return l.kind }

// IsUndefined reports whether no policy is configured.
func (l List) IsUndefined() bool { return l.kind == Undefined }

// IsReject reports whether this is the pegout-freeze sentinel.
func (l List) IsReject() bool { return l.kind == Reject }

// Len is the number of rows; zero for Undefined and Reject.
func (l List) Len() int { return len(l.entries) }

// Entries returns a copy of the rows in commitment order.
func (l List) Entries() []Entry {
	cp := make([]Entry, len(l.entries))
	copy(cp, l.entries)
	return cp
}

// OnlineKeys and OfflineKeys return the two columns, order-parallel.
func (l List) OnlineKeys() []PubKey {
	keys := make([]PubKey, len(l.entries))
	for i, e := range l.entries {
		keys[i] = e.Online
	}
	return keys
}

func (l List) OfflineKeys() []PubKey {
	keys := make([]PubKey, len(l.entries))
	for i, e := range l.entries {
		keys[i] = e.Offline
	}
	return keys
}

// ContainsOnline reports whether key is the online key of any row.
func (l List) ContainsOnline(key PubKey) bool {
	for _, e := range l.entries {
		if e.Online == key {
			return true
		}
	}
	return false
}

// Equal compares position by position. Undefined equals only Undefined.
func (l List) Equal(other List) bool {
	if l.kind != other.kind || len(l.entries) != len(other.entries) {
		return false
	}
	for i := range l.entries {
		if l.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}

// String is a short human form for logs.
func (l List) String() string {
	if l.kind != Entries {
		return l.kind.String()
	}
	rows := make([]string, len(l.entries))
	for i, e := range l.entries {
		rows[i] = e.String()
	}
	return "[" + strings.Join(rows, " ") + "]"
}
