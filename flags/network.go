package flags

import (
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-pak-sidechain/chainparams"
)

// NetworkFlags selects the chain the node runs on.

func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network preset (" + strings.Join(chainparams.Names(), "|") + ")",
			Value: chainparams.RegTestNetName,
		},
	}
}

// PakFlags isolates the pegout authorization policy.
func PakFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringSliceFlag{
			Name:  "pak",
			Usage: `PAK list entry "<offline_hex>:<online_hex>" (repeatable), or "reject" for a pegout freeze`,
		},
		cli.BoolTFlag{
			Name:  "pak.enforce",
			Usage: "Enforce the configured PAK list on proposals and pegouts (default: true)",
		},
	}
}
