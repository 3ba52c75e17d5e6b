// Command netspand runs the netspan topology discovery server: it
// loads configuration, opens the SQLite store, wires the scan
// orchestrator and its drivers, and serves the HTTP/JSON and
// WebSocket API spec.md §6 describes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ridgeline-labs/netspan/internal/config"
	"github.com/ridgeline-labs/netspan/internal/eventbus"
	"github.com/ridgeline-labs/netspan/internal/httpapi"
	"github.com/ridgeline-labs/netspan/internal/mdns"
	"github.com/ridgeline-labs/netspan/internal/prober"
	"github.com/ridgeline-labs/netspan/internal/scanner"
	"github.com/ridgeline-labs/netspan/internal/sshconn"
	"github.com/ridgeline-labs/netspan/internal/store"
	"github.com/ridgeline-labs/netspan/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults")
	}

	dbPath := viperCfg.GetString("database.path")
	if dbPath == "" {
		dbPath = "netspan.db"
	}
	db, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", dbPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if reconciled, err := db.ReconcileOrphanedScans(ctx); err != nil {
		logger.Fatal("failed to reconcile orphaned scans", zap.Error(err))
	} else if reconciled > 0 {
		logger.Info("reconciled orphaned scans from a previous run", zap.Int64("count", reconciled))
	}

	bus := eventbus.NewBus(logger.Named("eventbus"))

	sshTimeout := viperCfg.GetDuration("scan.ssh_timeout")
	if sshTimeout == 0 {
		sshTimeout = 10 * time.Second
	}
	portProbeTimeout := viperCfg.GetDuration("scan.port_probe_timeout")
	if portProbeTimeout == 0 {
		portProbeTimeout = 2 * time.Second
	}
	scanConcurrency := viperCfg.GetInt("scan.concurrency")
	if scanConcurrency == 0 {
		scanConcurrency = 32
	}
	maxDepth := viperCfg.GetInt("scan.max_depth")
	if maxDepth == 0 {
		maxDepth = 32
	}
	mdnsSweepTimeout := viperCfg.GetDuration("mdns.sweep_timeout")
	if mdnsSweepTimeout == 0 {
		mdnsSweepTimeout = 5 * time.Second
	}
	snmpCommunity := viperCfg.GetString("snmp.community")
	if snmpCommunity == "" {
		snmpCommunity = "public"
	}
	mdnsEnabled := viperCfg.GetBool("mdns.enabled")

	sshClient := sshconn.New(logger.Named("sshconn"))
	prb := prober.New(portProbeTimeout, scanConcurrency, logger.Named("prober"))
	sweeper := mdns.New(mdnsSweepTimeout, logger.Named("mdns"))

	orchestrator := scanner.New(db, bus, sshClient, prb, sweeper, logger.Named("scanner"),
		scanner.WithSSHTimeout(sshTimeout),
		scanner.WithMaxDepth(maxDepth),
		scanner.WithMDNS(mdnsEnabled),
		scanner.WithSNMPCommunity(snmpCommunity),
	)

	scanHandlers := httpapi.NewScanHandlers(orchestrator, db, logger.Named("httpapi"))
	wsHandler := ws.NewHandler(db, bus, logger.Named("ws"))

	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:8080"
	}
	devMode := viperCfg.GetBool("server.dev_mode")

	ready := httpapi.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})

	srv := httpapi.New(addr, scanHandlers, logger.Named("httpapi"), ready, devMode, wsHandler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("netspan server ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("netspan server stopped")
}
