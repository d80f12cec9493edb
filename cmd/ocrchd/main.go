// ocrchd is the reconciliation engine's process entrypoint: it loads
// configuration, opens the store, and wires every pipeline stage
// (PoolingManager -> SyncWorker coordinator -> Matcher -> WebhookSender)
// behind one Supervisor, the way luxfi-evm's evm-node command wires a
// single cli.App action over its database/network subsystems.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/ocrch/engine/internal/admin"
	"github.com/ocrch/engine/internal/api"
	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/matcher"
	"github.com/ocrch/engine/internal/metrics"
	"github.com/ocrch/engine/internal/pooling"
	"github.com/ocrch/engine/internal/store"
	"github.com/ocrch/engine/internal/supervisor"
	syncpkg "github.com/ocrch/engine/internal/sync"
	"github.com/ocrch/engine/internal/webhook"
	"github.com/ocrch/engine/internal/ws"
)

const clientIdentifier = "ocrchd"

// etherscanV2BaseURL is the multichain Etherscan V2 API spec §6.2 calls
// `{ETHERSCAN_V2}`.
const etherscanV2BaseURL = "https://api.etherscan.io/v2"

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "stablecoin-payment reconciliation engine",
	Version: "1.0.0",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to the TOML configuration file",
			Value: "ocrchd.toml",
		},
	},
}

func init() {
	app.Action = run
	app.Before = func(ctx *cli.Context) error {
		level := os.Getenv("OCRCHD_LOG_LEVEL")
		if level == "" {
			level = "info"
		}
		return logging.Init(level)
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires every component and blocks until SIGINT/SIGTERM, the single
// cli.App action this process supports (spec §1 Non-goals excludes the
// CLI/router themselves, but something has to construct and hold them).
func run(cliCtx *cli.Context) error {
	cfgPath := cliCtx.String("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if lvl := cfg.Server().LogLevel; lvl != "" {
		if err := logging.Init(lvl); err != nil {
			logging.Warn("invalid server.log_level, keeping default", "value", lvl, "err", err)
		}
	}

	dsn, err := config.DatabaseURL()
	if err != nil {
		return err
	}
	st, err := store.Open(dsn)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sup := supervisor.New(ctx)

	poolMgr := pooling.NewManager(cfg)
	apiKeys := cfg.APIKeys()
	// One client per explorer, shared by every worker, so each client's
	// rate limiter covers all (chain, token) pairs that use it.
	evmExplorer := syncpkg.NewEVMExplorer(etherscanV2BaseURL, apiKeys.Etherscan)
	tronExplorer := syncpkg.NewTronExplorer(apiKeys.Tronscan)
	coordinator := syncpkg.NewCoordinator(cfg, st,
		func() syncpkg.EVMExplorer { return evmExplorer },
		func() syncpkg.TronExplorer { return tronExplorer },
	)
	watcher := matcher.NewWatcher(st)
	sender := webhook.New(st, cfg)
	hub := ws.NewHub(watcher)

	orderSvc := api.NewService(st, cfg, poolMgr.Input())
	adminSvc := admin.NewService(st)

	sup.Go(poolMgr.Run)
	sup.Go(func(ctx context.Context) error { return coordinator.Run(ctx, poolMgr.Ticks()) })
	sup.Go(func(ctx context.Context) error { return watcher.Run(ctx, coordinator.MatchTicks()) })
	sup.Go(func(ctx context.Context) error { return sender.Run(ctx, watcher.WebhookEvents()) })

	handler := newRouter(cfg, orderSvc, adminSvc, hub, registry)
	httpSrv := &http.Server{Addr: cfg.Server().ListenAddr, Handler: handler}
	sup.Go(func(ctx context.Context) error { return runHTTPServer(ctx, httpSrv) })
	sup.Go(func(ctx context.Context) error { return watchReload(ctx, cfgPath, cfg) })

	logging.Info("ocrchd started", "listen_addr", cfg.Server().ListenAddr)
	return sup.Wait()
}

// runHTTPServer runs httpSrv until ctx is cancelled, then shuts it down
// gracefully.
func runHTTPServer(ctx context.Context, httpSrv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		return httpSrv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// watchReload reloads the TOML config on SIGHUP (spec §6.3: "each
// enabled (blockchain, coin) spawns one SyncWorker at startup and on
// config reload (SIGHUP)").
func watchReload(ctx context.Context, path string, cfg *config.SharedConfig) error {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sighup:
			f, err := config.LoadFile(path)
			if err != nil {
				logging.Error("config reload failed", "err", err)
				continue
			}
			cfg.Reload(f)
			logging.Info("config reloaded", "version", cfg.Version())
		}
	}
}

func newRouter(cfg *config.SharedConfig, orderSvc api.Service, adminSvc admin.Service, hub *ws.Hub, registry *prometheus.Registry) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":"%s"}`, app.Version)
	})
	// The remaining routes spec §6.1 names (service orders, user orders,
	// admin listing) are request-decoding/signature-verification glue
	// around orderSvc/adminSvc/hub — out of scope per spec §1's
	// Non-goals, which explicitly carve out "the HTTP router ... the
	// admin dashboard endpoints ... the per-request extractors".
	_ = orderSvc
	_ = adminSvc
	_ = hub
	return r
}
