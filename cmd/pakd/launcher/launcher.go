package launcher

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-pak-sidechain/flags"
	"github.com/rony4d/go-pak-sidechain/node"
	"github.com/rony4d/go-pak-sidechain/utils/logging"
)

var app = flags.NewApp()

func init() {
	app.Flags = flags.AllFlags()
	app.Action = runNode
	app.Commands = []cli.Command{
		{
			Name:   "pakinfo",
			Usage:  "Print the configured and active PAK lists and the pegout wallet state as JSON",
			Action: pakInfo,
		},
		{
			Name:      "initpegoutwallet",
			Usage:     "Initialize the pegout wallet from a mainchain xpub and print its pakentry",
			ArgsUsage: "<bitcoin_xpub> [bip32_counter]",
			Action:    initPegoutWallet,
		},
	}
}

// Launch parses args and runs the selected command.
func Launch(args []string) error {
	return app.Run(args)
}

// env is an opened node with everything that has to be closed after it.
type env struct {
	cfg  Config
	log  *logrus.Logger
	db   ethdb.KeyValueStore
	node *node.Node
}

func (e *env) Close() error {
	return e.db.Close()
}

func openEnv(ctx *cli.Context) (*env, error) {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Config{
		Verbosity: cfg.Node.Logging.Verbosity,
		Format:    cfg.Node.Logging.Format,
		Color:     cfg.Node.Logging.Color,
		Sentry:    cfg.Node.Logging.Sentry,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	nodeCfg, err := cfg.NodeConfig()
	if err != nil {
		return nil, err
	}

	if err := ensureDir(cfg.Node.DataDir); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(cfg.Node.DataDir, cfg.Storage.Path)
	db, err := leveldb.New(dbPath, cfg.Storage.CacheMB, cfg.Storage.Handles, "pakd/db/", false)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	n, err := node.New(db, nodeCfg, rand.Reader, logrus.NewEntry(log))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db, node: n}, nil
}

func runNode(ctx *cli.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	log := logging.Module(e.log, "launcher")
	policy := e.node.Policy()
	log.WithFields(logrus.Fields{
		"node":       e.node.Name(),
		"network":    e.cfg.Network,
		"datadir":    e.cfg.Node.DataDir,
		"configured": policy.Configured,
		"enforce":    policy.Enforce,
		"active":     e.node.Active(),
	}).Info("PAK node started")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	var srv *http.Server
	errc := make(chan error, 1)
	if e.cfg.Metrics.Enabled {
		srv = metricsServer(e.cfg.Metrics)
		log.WithField("addr", srv.Addr).Info("Starting metrics server")
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	select {
	case sig := <-sigc:
		log.WithField("signal", sig).Info("Shutting down")
	case err = <-errc:
		log.WithError(err).Error("Metrics server failed")
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
	return err
}

func metricsServer(cfg MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTPAddr, strconv.Itoa(cfg.HTTPPort)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func pakInfo(ctx *cli.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return writeJSON(ctx.App.Writer, e.node.QueryPolicy())
}

func initPegoutWallet(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s initpegoutwallet %s", ctx.App.Name, ctx.Command.ArgsUsage)
	}
	var counter *int64
	if len(args) == 2 {
		c, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bip32_counter: %w", err)
		}
		counter = &c
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := e.node.InitWallet(args[0], counter)
	if err != nil {
		return err
	}
	return writeJSON(ctx.App.Writer, node.NewWalletInitResult(st))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
