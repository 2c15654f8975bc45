// Package main runs the copy-trading monitor: it streams transactions
// mentioning the copied targets, classifies them into trade events,
// mirrors admitted buys, force-sells positions past the wait limit and
// sweeps cached pools for cross-venue price gaps.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"solana-copyarb/internal/arbitrage"
	"solana-copyarb/internal/classifier"
	"solana-copyarb/internal/config"
	"solana-copyarb/internal/executor"
	"solana-copyarb/internal/ledger"
	"solana-copyarb/internal/observability"
	"solana-copyarb/internal/poolcache"
	"solana-copyarb/internal/records"
	"solana-copyarb/internal/solana"
	"solana-copyarb/internal/storage"
	chstore "solana-copyarb/internal/storage/clickhouse"
	"solana-copyarb/internal/storage/memory"
	"solana-copyarb/internal/storage/migrations"
	pgstore "solana-copyarb/internal/storage/postgres"
	"solana-copyarb/internal/stream"
	"solana-copyarb/internal/venue"
)

// monitorStores holds the stores the trading loop writes to.
type monitorStores struct {
	events        storage.TradeEventStore
	executions    storage.ExecutionStore
	opportunities storage.OpportunityStore
	samples       storage.PriceSampleStore
}

func main() {
	logger := log.New(os.Stdout, "[monitor] ", log.LstdFlags|log.Lshortfile)

	// Environment first (.env included), flags override.
	cfg := config.Load(logger)

	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", cfg.WSEndpoint, "Solana WebSocket endpoint")
	wallet := flag.String("wallet", os.Getenv("WALLET_ADDRESS"), "Trading wallet public key (base58)")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	recordsDir := flag.String("records-dir", cfg.RecordsDir, "Directory for transaction and opportunity record files")
	poolCachePath := flag.String("pool-cache", cfg.PoolCachePath, "Pool cache JSON file")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address")
	flag.Parse()

	cfg.RPCEndpoint = *rpcEndpoint
	cfg.WSEndpoint = *wsEndpoint
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN
	cfg.RecordsDir = *recordsDir
	cfg.PoolCachePath = *poolCachePath
	cfg.MetricsAddr = *metricsAddr

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.WSEndpoint == "" {
		logger.Fatal("--ws-endpoint (WS_URL) is required")
	}
	if *wallet == "" {
		logger.Fatal("--wallet (WALLET_ADDRESS) is required")
	}
	if len(cfg.CopyTargets) == 0 && len(cfg.MonitorMints) == 0 {
		logger.Fatal("Nothing to watch: set COPY_TRADING_TARGET_ADDRESS or MONITOR_TOKEN_MINTS")
	}
	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg.PostgresDSN, cfg.ClickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	pools, err := poolcache.Load(cfg.PoolCachePath, logger)
	if err != nil {
		logger.Fatalf("Failed to load pool cache: %v", err)
	}
	logger.Printf("Pool cache: %d tokens from %s", pools.Len(), cfg.PoolCachePath)

	registry := venue.DefaultRegistry()
	recorder := records.NewWriter(records.Options{Dir: cfg.RecordsDir, Logger: logger})
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	led := ledger.New()

	detector := arbitrage.NewDetector(arbitrage.Options{
		ThresholdPct: cfg.ArbThreshold,
		MinLiquidity: cfg.MinLiquidity,
		Pools:        pools,
		Store:        stores.opportunities,
		Records:      recorder,
		Logger:       logger,
	})

	exec, err := executor.New(executor.Options{
		Ledger:       led,
		Signer:       &paperSigner{logger: logger},
		Balances:     rpc,
		Registry:     registry,
		Pools:        pools,
		Wallet:       *wallet,
		Executions:   stores.executions,
		Logger:       logger,
		ExpireWindow: cfg.ExpireWindow,
		SlippageBps:  cfg.SlippageBps,
	})
	if err != nil {
		logger.Fatalf("Failed to create executor: %v", err)
	}

	ws, err := stream.NewWSClient(ctx, cfg.WSEndpoint, nil)
	if err != nil {
		logger.Fatalf("Failed to connect websocket: %v", err)
	}
	defer ws.Close()

	// Watch the copied wallets plus the monitored mints; a mint
	// subscription surfaces every transaction touching the token.
	watched := append([]string{}, cfg.CopyTargets...)
	watched = append(watched, cfg.MonitorMints...)
	source := stream.NewWSSource(ws, rpc, watched, logger)

	supervisor, err := stream.NewSupervisor(stream.Options{
		Source:     source,
		Classifier: classifier.New(registry),
		Ledger:     led,
		Executor:   exec,
		Detector:   detector,
		Pools:      pools,
		Prices:     rpc,
		Events:     stores.events,
		Samples:    stores.samples,
		Records:    recorder,
		Registry:   registry,
		Config:     cfg,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create supervisor: %v", err)
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go startHTTPServer(cfg.MetricsAddr, supervisor, led, logger)

	err = supervisor.Run(ctx)
	done <- err
	cancel()

	if err := pools.Save(); err != nil {
		logger.Printf("Final pool cache save failed: %v", err)
	}

	if err != nil && err != context.Canceled {
		logger.Fatalf("Monitor error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores wires the four trading stores, in memory or backed by
// PostgreSQL (events, executions, opportunities) and ClickHouse (price
// samples) with migrations applied.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*monitorStores, func(), error) {
	if useMemory {
		stores := &monitorStores{
			events:        memory.NewTradeEventStore(),
			executions:    memory.NewExecutionStore(),
			opportunities: memory.NewOpportunityStore(),
			samples:       memory.NewPriceSampleStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	logger.Println("Stores ready: postgres + clickhouse, migrations applied")

	stores := &monitorStores{
		events:        pgstore.NewTradeEventStore(pool),
		executions:    pgstore.NewExecutionStore(pool),
		opportunities: pgstore.NewOpportunityStore(pool),
		samples:       chstore.NewPriceSampleStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// paperSigner fills the Signer contract without any key material: it
// logs the transaction it would have broadcast and returns a tagged
// pseudo-signature, so the ledger and the executions store track the
// engine's decisions at quoted prices.
type paperSigner struct {
	logger *log.Logger
	seq    atomic.Uint64
}

func (p *paperSigner) SignAndSend(_ context.Context, recentBlockhash string, ixs []venue.Instruction) ([]string, error) {
	n := p.seq.Add(1)

	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%d", n, recentBlockhash, time.Now().UnixNano())
	for _, ix := range ixs {
		h.Write([]byte(ix.ProgramID))
		h.Write(ix.Data)
	}
	sig := "paper" + hex.EncodeToString(h.Sum(nil))[:32]

	p.logger.Printf("paper broadcast #%d: %d instructions, blockhash=%q, sig=%s", n, len(ixs), recentBlockhash, sig)
	return []string{sig}, nil
}

// startHTTPServer serves /health, /metrics and /status.
func startHTTPServer(addr string, sup *stream.Supervisor, led *ledger.Ledger, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, sup, led)
	})

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	EventsSeen    uint64  `json:"events_seen"`
	OpenPositions int     `json:"open_positions"`
	BuyingEnabled bool    `json:"buying_enabled"`
	LastEventAge  float64 `json:"last_event_age_seconds"`
}

func writeStatus(w http.ResponseWriter, sup *stream.Supervisor, led *ledger.Ledger) {
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(sup.StartedAt()).String(),
		EventsSeen:    sup.EventsSeen(),
		OpenPositions: len(led.Bought()),
		BuyingEnabled: led.BuyingEnabled(),
	}
	if last := sup.LastEventAt(); !last.IsZero() {
		resp.LastEventAge = time.Since(last).Seconds()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
