package node

import (
	"encoding/json"

	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/wallet"
)

// PakListInfo renders a PAK list for inspection. Undefined marshals to an
// empty object, Reject to empty key arrays with reject set, and a list to
// order-parallel online and offline arrays.
type PakListInfo struct {
	List pak.List
}

type pakListJSON struct {
	Online  []string `json:"online"`
	Offline []string `json:"offline"`
	Reject  bool     `json:"reject"`
}

// MarshalJSON implements json.Marshaler.
func (i PakListInfo) MarshalJSON() ([]byte, error) {
	if i.List.IsUndefined() {
		return []byte("{}"), nil
	}
	enc := pakListJSON{
		Online:  hexKeys(i.List.OnlineKeys()),
		Offline: hexKeys(i.List.OfflineKeys()),
		Reject:  i.List.IsReject(),
	}
	return json.Marshal(&enc)
}

func hexKeys(keys []pak.PubKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// PakInfo is the externally observable PAK snapshot of a node. The wallet
// fields are empty until the pegout wallet is initialized.
type PakInfo struct {
	Configured PakListInfo `json:"config_paklist"`
	Active     PakListInfo `json:"block_paklist"`

	Xpub             string   `json:"bitcoin_xpub,omitempty"`
	DerivationPath   string   `json:"derivation_path,omitempty"`
	LiquidPak        string   `json:"liquid_pak,omitempty"`
	AddressLookahead []string `json:"address_lookahead,omitempty"`
}

// QueryPolicy returns the configured and active lists together with the
// wallet derivation state, taken under one read lock.
func (n *Node) QueryPolicy() PakInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()

	info := PakInfo{
		Configured: PakListInfo{n.store.Policy().Configured},
		Active:     PakListInfo{n.store.Active()},
	}
	if st, err := n.wallet.Current(); err == nil {
		info.setWallet(st)
	}
	return info
}

func (i *PakInfo) setWallet(st *wallet.State) {
	i.Xpub = st.Xpub
	i.DerivationPath = st.DerivationPath
	i.LiquidPak = st.OnlineKey.String()
	i.AddressLookahead = st.Lookahead()
}

// WalletInitResult is what initializing the pegout wallet reports back.
type WalletInitResult struct {
	PakEntry         string   `json:"pakentry"`
	LiquidPak        string   `json:"liquid_pak"`
	AddressLookahead []string `json:"address_lookahead"`
}

// NewWalletInitResult renders a freshly initialized wallet state.
func NewWalletInitResult(st *wallet.State) WalletInitResult {
	return WalletInitResult{
		PakEntry:         st.PakEntry(),
		LiquidPak:        st.OnlineKey.String(),
		AddressLookahead: st.Lookahead(),
	}
}
