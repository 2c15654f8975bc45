// Package main discovers liquidity pools for the configured mints: one
// getProgramAccounts scan per venue and mint, filtered server-side by
// the venue's account size and mint offset, persisted to the pool cache
// file that cmd/monitor trades against.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mr-tron/base58"

	"solana-copyarb/internal/config"
	"solana-copyarb/internal/poolcache"
	"solana-copyarb/internal/solana"
	"solana-copyarb/internal/venue"
)

func main() {
	logger := log.New(os.Stderr, "[discover] ", log.LstdFlags)

	cfg := config.Load(logger)

	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	poolCachePath := flag.String("pool-cache", cfg.PoolCachePath, "Pool cache JSON file")
	mints := flag.String("mints", strings.Join(cfg.MonitorMints, ","), "Comma-separated token mints to scan for")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall scan deadline")
	flag.Parse()

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint (RPC_URL) is required")
	}
	mintList := splitMints(*mints)
	if len(mintList) == 0 {
		logger.Fatal("--mints (MONITOR_TOKEN_MINTS) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	pools, err := poolcache.Load(*poolCachePath, logger)
	if err != nil {
		logger.Fatalf("Load pool cache: %v", err)
	}

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	registry := venue.DefaultRegistry()

	start := time.Now()
	total := 0
	for _, v := range registry.All() {
		found := scanVenue(ctx, logger, rpc, pools, v, mintList)
		logger.Printf("%s: %d pools", v.Name, found)
		total += found
	}

	if err := pools.Save(); err != nil {
		logger.Fatalf("Save pool cache: %v", err)
	}
	logger.Printf("Discovery complete in %v: %d pools, %d tokens cached to %s",
		time.Since(start).Truncate(time.Millisecond), total, pools.Len(), *poolCachePath)
}

// scanVenue runs one filtered program scan per mint and upserts every
// matching account as a pool. The discovered account address is the pool
// id; the pool's token accounts are derived from it on use.
func scanVenue(ctx context.Context, logger *log.Logger, rpc solana.RPCClient, pools *poolcache.Cache, v venue.Venue, mintList []string) int {
	found := 0
	for _, mint := range mintList {
		mintBytes, err := base58.Decode(mint)
		if err != nil {
			logger.Printf("%s: skip mint %s: %v", v.Name, mint, err)
			continue
		}

		filters := []solana.AccountFilter{{
			DataSize: uint64(v.Discovery.AccountSize),
			Offset:   uint64(v.Discovery.MintOffset),
			Bytes:    mintBytes,
		}}
		accounts, err := rpc.GetProgramAccounts(ctx, v.ProgramID, filters)
		if err != nil {
			logger.Printf("%s: scan for %s failed: %v", v.Name, mint, err)
			continue
		}

		for _, acc := range accounts {
			pools.Upsert(mint, poolcache.CachedPool{
				PoolID:    acc.Pubkey,
				DexName:   v.Name,
				BaseMint:  mint,
				QuoteMint: venue.SOLMint,
			})
		}
		found += len(accounts)
	}
	return found
}

func splitMints(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
