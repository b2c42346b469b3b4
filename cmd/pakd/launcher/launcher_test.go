package launcher

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-pak-sidechain/inter/pak"
)

const regtestXpub = "tpubD6NzVbkrYhZ4WaWSyoBvQwbpLkojyoTZPRsgXELWz3Popb3qkjcJyJUGLnL4qHHoQvao8ESaAstxYSnhyswJ76uZPStJRJCTKvosUCJZL5B"

func launch(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	prev := app.Writer
	app.Writer = &out
	defer func() { app.Writer = prev }()
	require.NoError(t, Launch(append([]string{"pakd"}, args...)))
	return out.Bytes()
}

func TestInitPegoutWalletAndPakInfo(t *testing.T) {
	require := require.New(t)
	common := []string{"--datadir", t.TempDir(), "--log.verbosity", "1", "--pak", offline1 + ":" + online1}

	var res struct {
		PakEntry         string   `json:"pakentry"`
		LiquidPak        string   `json:"liquid_pak"`
		AddressLookahead []string `json:"address_lookahead"`
	}
	require.NoError(json.Unmarshal(launch(t, append(common, "initpegoutwallet", regtestXpub, "4")...), &res))
	entry, err := pak.ParseEntry(res.PakEntry)
	require.NoError(err)
	require.Equal(res.LiquidPak, entry.Online.String())
	require.Len(res.AddressLookahead, 3)

	var info map[string]interface{}
	require.NoError(json.Unmarshal(launch(t, append(common, "pakinfo")...), &info))
	require.Equal(regtestXpub, info["bitcoin_xpub"])
	require.Equal("/0/4", info["derivation_path"])
	require.Equal(res.LiquidPak, info["liquid_pak"])

	configured := info["config_paklist"].(map[string]interface{})
	require.Equal([]interface{}{online1}, configured["online"])
	require.Equal([]interface{}{offline1}, configured["offline"])
	active := info["block_paklist"].(map[string]interface{})
	require.Equal(true, active["reject"])
}

func TestLaunchConfigError(t *testing.T) {
	err := Launch([]string{"pakd", "--datadir", t.TempDir(), "--pak", RejectValue, "--pak", offline1 + ":" + online1, "pakinfo"})
	require.ErrorIs(t, err, ErrConfig)

	err = Launch([]string{"pakd", "--datadir", t.TempDir(), "initpegoutwallet"})
	require.Error(t, err)
}
