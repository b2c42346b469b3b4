package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags holds knobs specific to the local node instance (identity, storage).

func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "identity",
			Usage: "Node name used in logs and metrics",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "Megabytes of memory allocated to the database cache",
			Value: 16,
		},
		cli.IntFlag{
			Name:  "handles",
			Usage: "Number of open file handles for the database",
			Value: 16,
		},
	}
}
