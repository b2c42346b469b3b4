package launcher

import (
	"github.com/rony4d/go-pak-sidechain/chainparams"
)

// Defaults bundles the baseline configuration values the launcher uses
// before flags override them.

type Defaults struct {
	Node    NodeDefaults
	Network NetworkDefaults
	Storage StorageDefaults
	Metrics MetricsDefaults
	Pak     PakDefaults
	Logging LoggingDefaults
}

// NodeDefaults captures top-level node settings (datadir, identity).

type NodeDefaults struct {
	DataDir string //	Filesystem root holding the chaindata database. Changing it lets several nodes run side by side.
	Name    string //	Node name attached to every log line and metric.
}

// NetworkDefaults picks the chain preset.
type NetworkDefaults struct {
	Name string //	One of the chainparams presets; decides the mainchain the pegout wallet derives addresses for.
}

// StorageDefaults configures the database.
type StorageDefaults struct {
	Path        string //	Database directory below DataDir.
	CacheSizeMB int    //	Memory reserved for the LevelDB block cache and write buffer.
	Handles     int    //	File handles LevelDB may keep open.
}

type MetricsDefaults struct {
	Enable   bool   //	Toggle for the metrics server; when true the node exposes Prometheus metrics on HTTPAddr:HTTPPort.
	HTTPAddr string //	IP/interface the metrics server binds to.
	HTTPPort int    //	TCP port of the metrics server; default 6060.
}

// PakDefaults is the PAK policy of a node started without -pak flags.
type PakDefaults struct {
	Entries []string //	Raw -pak values; none means no configured list.
	Enforce bool     //	Whether proposals and pegouts are checked against the configured list.
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    //	Log level numeric (0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace).
	Format    string //	Log output format (text vs json).
	Color     bool   //	Whether to use ANSI color codes in logs.
	Sentry    string //	Sentry DSN for error reports; empty disables it.
}

// DefaultConfig returns a fully populated Defaults instance.

func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.pakd",
			Name:    "pakd",
		},
		Network: NetworkDefaults{
			Name: chainparams.RegTestNetName,
		},
		Storage: StorageDefaults{
			Path:        "chaindata",
			CacheSizeMB: 16,
			Handles:     16,
		},
		Metrics: MetricsDefaults{
			Enable:   false,
			HTTPAddr: "127.0.0.1",
			HTTPPort: 6060,
		},
		Pak: PakDefaults{
			Enforce: true,
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     false,
		},
	}
}
