// This file maps the CLI context to the launcher Config and the Config to
// the node's PAK policy.

package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-pak-sidechain/chainparams"
	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/node"
	"github.com/rony4d/go-pak-sidechain/pakstore"
	"github.com/rony4d/go-pak-sidechain/utils/logging"
)

// RejectValue is the -pak value configuring a pegout freeze.
const RejectValue = "reject"

// ErrConfig marks startup configuration the node cannot run with.
var ErrConfig = errors.New("invalid configuration")

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node    NodeConfig
	Network string
	Storage StoreConfig
	Metrics MetricsConfig
	Pak     PakConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
	Logging LoggingConfig
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	Sentry    string
}

type StoreConfig struct {
	Path    string
	CacheMB int
	Handles int
}

type MetricsConfig struct {
	Enabled  bool
	HTTPAddr string
	HTTPPort int
}

type PakConfig struct {
	Entries []string
	Enforce bool
}

// -----------------------------------------------------------------------------
// Default config + builders
// -----------------------------------------------------------------------------

func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(d.Node.DataDir),
			Name:    d.Node.Name,
			Logging: LoggingConfig{
				Verbosity: d.Logging.Verbosity,
				Format:    d.Logging.Format,
				Color:     d.Logging.Color,
				Sentry:    d.Logging.Sentry,
			},
		},
		Network: d.Network.Name,
		Storage: StoreConfig{
			Path:    d.Storage.Path,
			CacheMB: d.Storage.CacheSizeMB,
			Handles: d.Storage.Handles,
		},
		Metrics: MetricsConfig{
			Enabled:  d.Metrics.Enable,
			HTTPAddr: d.Metrics.HTTPAddr,
			HTTPPort: d.Metrics.HTTPPort,
		},
		Pak: PakConfig{
			Entries: append([]string(nil), d.Pak.Entries...),
			Enforce: d.Pak.Enforce,
		},
	}
}

// MakeAllConfigs merges defaults and CLI overrides into a single config
// struct and checks that the node can start with it. Errors wrap ErrConfig.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()
	applyCLIOverrides(ctx, &cfg)

	if _, err := cfg.Params(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Policy(); err != nil {
		return Config{}, err
	}
	if _, err := logging.Level(cfg.Node.Logging.Verbosity); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

// Params resolves the network preset.
func (c Config) Params() (chainparams.Params, error) {
	p, err := chainparams.ByName(c.Network)
	if err != nil {
		return chainparams.Params{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return p, nil
}

// Policy parses the -pak values into the node policy.
func (c Config) Policy() (pakstore.NodePolicy, error) {
	list, err := ParsePakList(c.Pak.Entries)
	if err != nil {
		return pakstore.NodePolicy{}, err
	}
	return pakstore.NodePolicy{Configured: list, Enforce: c.Pak.Enforce}, nil
}

// NodeConfig assembles what node.New needs.
func (c Config) NodeConfig() (node.Config, error) {
	params, err := c.Params()
	if err != nil {
		return node.Config{}, err
	}
	policy, err := c.Policy()
	if err != nil {
		return node.Config{}, err
	}
	return node.Config{Name: c.Node.Name, Params: params, Policy: policy}, nil
}

// ParsePakList turns -pak values into a list. No values is Undefined, a
// single "reject" is Reject, anything else must be entry rows.
func ParsePakList(values []string) (pak.List, error) {
	if len(values) == 0 {
		return pak.UndefinedList(), nil
	}
	entries := make([]pak.Entry, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == RejectValue {
			if len(values) != 1 {
				return pak.List{}, fmt.Errorf("%w: -pak=%s cannot be combined with other entries", ErrConfig, RejectValue)
			}
			return pak.RejectList(), nil
		}
		e, err := pak.ParseEntry(v)
		if err != nil {
			return pak.List{}, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		entries = append(entries, e)
	}
	list, err := pak.NewList(entries)
	if err != nil {
		return pak.List{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return list, nil
}

// -----------------------------------------------------------------------------
// CLI wiring
// -----------------------------------------------------------------------------

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.GlobalString("datadir"))
	}
	if ctx.GlobalIsSet("identity") {
		cfg.Node.Name = ctx.GlobalString("identity")
	}
	if ctx.GlobalIsSet("network") {
		cfg.Network = ctx.GlobalString("network")
	}

	if ctx.GlobalIsSet("cache") {
		cfg.Storage.CacheMB = ctx.GlobalInt("cache")
	}
	if ctx.GlobalIsSet("handles") {
		cfg.Storage.Handles = ctx.GlobalInt("handles")
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Node.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Node.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("log.sentry") {
		cfg.Node.Logging.Sentry = ctx.GlobalString("log.sentry")
	}

	if ctx.GlobalBool("metrics") {
		cfg.Metrics.Enabled = true
	}
	if ctx.GlobalIsSet("metrics.addr") {
		cfg.Metrics.HTTPAddr = ctx.GlobalString("metrics.addr")
	}
	if ctx.GlobalIsSet("metrics.port") {
		cfg.Metrics.HTTPPort = ctx.GlobalInt("metrics.port")
	}

	if ctx.GlobalIsSet("pak") {
		cfg.Pak.Entries = splitPakValues(ctx.GlobalStringSlice("pak"))
	}
	if ctx.GlobalIsSet("pak.enforce") {
		cfg.Pak.Enforce = ctx.GlobalBoolT("pak.enforce")
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

// splitPakValues also accepts comma separated rows in a single -pak value.
func splitPakValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		out = append(out, splitCSV(v)...)
	}
	return out
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
