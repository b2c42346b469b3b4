package flags

import (
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

// Version of the pakd binary.
const Version = "0.1.0"

// NewApp returns the pakd application shell. Callers attach flags, the
// default action and subcommands.
func NewApp() *cli.App {

	app := cli.NewApp()
	app.Name = "pakd"
	app.Usage = "Pegout Authorization Key node of a federated sidechain"
	app.Version = Version
	app.Writer = os.Stdout
	return app

}

// AllFlags is every flag group pakd understands.
func AllFlags() []cli.Flag {
	var all []cli.Flag
	all = append(all, CommonFlags()...)
	all = append(all, NodeFlags()...)
	all = append(all, NetworkFlags()...)
	all = append(all, PakFlags()...)
	return all
}
