// Package main re-classifies stored transaction record files: it walks
// the records directory, parses every *.json transaction record, runs
// the classifier over it and inserts the resulting trade events into
// the configured store. Useful for rebuilding the event table after a
// classifier change and for inspecting what a past stream contained.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"solana-copyarb/internal/classifier"
	"solana-copyarb/internal/config"
	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
	"solana-copyarb/internal/storage/memory"
	"solana-copyarb/internal/storage/migrations"
	pgstore "solana-copyarb/internal/storage/postgres"
	"solana-copyarb/internal/venue"
)

// ReplayStats summarizes one replay run.
type ReplayStats struct {
	Files      int            `json:"files"`
	Classified int            `json:"classified"`
	ByKind     map[string]int `json:"by_kind"`
	Duplicates int            `json:"duplicates"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
}

func main() {
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	cfg := config.Load(logger)

	recordsDir := flag.String("records-dir", cfg.RecordsDir, "Records directory to replay")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var events storage.TradeEventStore = memory.NewTradeEventStore()
	if !*useMemory && *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}
		events = pgstore.NewTradeEventStore(pool)
	}

	c := classifier.New(venue.DefaultRegistry())
	stats := ReplayStats{ByKind: make(map[string]int)}
	start := time.Now()

	err := filepath.WalkDir(*recordsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			// Opportunity records are not transaction records.
			if d.Name() == "arbitrage" {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".json") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		replayFile(ctx, logger, c, events, path, &stats)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("walk %s: %v", *recordsDir, err)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Record Files:  %d\n", stats.Files)
	fmt.Printf("Classified:    %d\n", stats.Classified)
	for _, kind := range []domain.EventKind{domain.EventSwapBuy, domain.EventSwapSell, domain.EventArbitrage} {
		if n := stats.ByKind[string(kind)]; n > 0 {
			fmt.Printf("  %-12s %d\n", kind, n)
		}
	}
	fmt.Printf("Duplicates:    %d\n", stats.Duplicates)
	fmt.Printf("Skipped:       %d\n", stats.Skipped)
	fmt.Printf("Errors:        %d\n", stats.Errors)
	fmt.Printf("Duration:      %v\n", time.Since(start).Truncate(time.Millisecond))
}

// replayFile parses one record file, classifies it and stores the event.
// Unparseable files and unclassifiable records are counted, not fatal.
func replayFile(ctx context.Context, logger *log.Logger, c *classifier.Classifier, events storage.TradeEventStore, path string, stats *ReplayStats) {
	stats.Files++

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Printf("read %s: %v", path, err)
		stats.Errors++
		return
	}

	var rec domain.TransactionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Printf("parse %s: %v", path, err)
		stats.Errors++
		return
	}
	if rec.Signature == "" {
		stats.Skipped++
		return
	}

	ev, err := c.Classify(&rec)
	if err != nil {
		if errors.Is(err, classifier.ErrUnrecognized) {
			stats.Skipped++
		} else {
			logger.Printf("classify %s: %v", rec.Signature, err)
			stats.Errors++
		}
		return
	}

	if err := events.Insert(ctx, ev); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			stats.Duplicates++
			return
		}
		logger.Printf("store %s: %v", ev.Signature, err)
		stats.Errors++
		return
	}

	stats.Classified++
	stats.ByKind[string(ev.Kind)]++
}
