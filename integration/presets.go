// Package integration assembles in-process federations of PAK nodes. It is
// the harness used to check that independently configured nodes converge on
// the same active PAK list by applying the same rules to the same chain.
//
// Presets name the node roles a federation is usually built from, so tests
// and local setups can describe a federation as a list of roles:
//
//	fed, err := integration.NewFederation(chainparams.RegTestParams(), log,
//		integration.NoValidatePreset("novalidate", pak1),
//		integration.EnforcingPreset("pak1", pak1),
//		integration.RejectPreset("reject"),
//	)
package integration

import (
	"fmt"

	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/pakstore"
)

// Preset is one node role: a name unique within the federation and the
// policy the node is started with.
type Preset struct {
	Name   string
	Policy pakstore.NodePolicy
}

// NoValidatePreset loads list for reporting only. The node accepts every block
// and every pegout.
func NoValidatePreset(name string, list pak.List) Preset {
	return Preset{Name: name, Policy: pakstore.NodePolicy{Configured: list, Enforce: false}}
}

// UndefinedPreset enforces without a configured list. Blocks are accepted
// unconditionally while pegouts are checked against the active list.
func UndefinedPreset(name string) Preset {
	return Preset{Name: name, Policy: pakstore.NodePolicy{Configured: pak.UndefinedList(), Enforce: true}}
}

// EnforcingPreset expects the chain to commit to list.
func EnforcingPreset(name string, list pak.List) Preset {
	return Preset{Name: name, Policy: pakstore.NodePolicy{Configured: list, Enforce: true}}
}

// RejectPreset expects a pegout freeze.
func RejectPreset(name string) Preset {
	return Preset{Name: name, Policy: pakstore.NodePolicy{Configured: pak.RejectList(), Enforce: true}}
}

// WithEntries returns a copy of p whose configured list has extra appended.
// Appending to Undefined or Reject starts a new list; an operator adding a
// pakentry to a node always ends up with a whitelist.
func (p Preset) WithEntries(extra ...pak.Entry) (Preset, error) {
	var entries []pak.Entry
	if p.Policy.Configured.Kind() == pak.Entries {
		entries = p.Policy.Configured.Entries()
	}
	list, err := pak.NewList(append(entries, extra...))
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	p.Policy.Configured = list
	return p, nil
}
