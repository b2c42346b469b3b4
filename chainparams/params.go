// Package chainparams defines the network presets a PAK sidechain node can run
// against and the consensus-adjacent constants tied to each of them.
//
// This package provides:
//   - Network name constants (liquidv1, liquidtestnet, liquidregtest)
//   - The mainchain the sidechain pegs out to, used for xpub network checks and
//     lookahead address encoding
//   - The pegout dust floor, the lookahead window and the derivation counter bound
//
// The Params type is the single place node components read these values from.
package chainparams

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Network names accepted by the --network flag.
const (
	MainNetName    = "liquidv1"
	TestNetName    = "liquidtestnet"
	RegTestNetName = "liquidregtest"
)

const (
	// MinPegoutAmount is the smallest pegout the node will construct: 1 millibit.
	MinPegoutAmount btcutil.Amount = 100000

	// DefaultLookahead is the number of mainchain addresses precomputed from
	// the current derivation counter onwards.
	DefaultLookahead = 3

	// MaxDerivationCounter is the inclusive upper bound of the wallet counter.
	MaxDerivationCounter = 1000000000
)

// Params describes a sidechain network as far as the PAK subsystem cares.
type Params struct {
	// Name identifies the preset (e.g. "liquidv1").
	Name string

	// Mainchain is the Bitcoin network pegouts are paid on. Extended public
	// keys handed to the pegout wallet must belong to it.
	Mainchain *chaincfg.Params

	// MinPegoutAmount is the dust floor for SendToMainchain.
	MinPegoutAmount btcutil.Amount

	// Lookahead is the number of addresses in the wallet's address_lookahead.
	Lookahead int

	// MaxCounter bounds the BIP32 counter, inclusive.
	MaxCounter int64
}

// MainNetParams returns the production network preset.
func MainNetParams() Params {
	return Params{
		Name:            MainNetName,
		Mainchain:       &chaincfg.MainNetParams,
		MinPegoutAmount: MinPegoutAmount,
		Lookahead:       DefaultLookahead,
		MaxCounter:      MaxDerivationCounter,
	}
}

// TestNetParams returns the public test network preset.
func TestNetParams() Params {
	p := MainNetParams()
	p.Name = TestNetName
	p.Mainchain = &chaincfg.TestNet3Params
	return p
}

// RegTestParams returns the local regression test preset. Federation tests
// and the in-process harness run against it.
func RegTestParams() Params {
	p := MainNetParams()
	p.Name = RegTestNetName
	p.Mainchain = &chaincfg.RegressionNetParams
	return p
}

var presets = map[string]func() Params{
	MainNetName:    MainNetParams,
	TestNetName:    TestNetParams,
	RegTestNetName: RegTestParams,
}

// ByName looks up a preset.
func ByName(name string) (Params, error) {
	mk, ok := presets[name]
	if !ok {
		return Params{}, fmt.Errorf("unknown network %q, expected one of %v", name, Names())
	}
	return mk(), nil
}

// Names lists the known presets in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String implements fmt.Stringer.
func (p Params) String() string {
	return fmt.Sprintf("%s (mainchain %s)", p.Name, p.Mainchain.Name)
}
