// Package config reads the runtime configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the binaries read. Fields map 1:1 to
// environment variables; Load applies the documented defaults when a
// variable is unset or unparseable.
type Config struct {
	// WSEndpoint is the Solana WebSocket endpoint (WS_URL).
	WSEndpoint string
	// RPCEndpoint is the Solana JSON-RPC HTTP endpoint (RPC_URL).
	RPCEndpoint string

	// CopyTargets are the wallet addresses whose swaps are copied
	// (COPY_TRADING_TARGET_ADDRESS, comma separated in multi mode).
	CopyTargets []string
	// MultiCopy enables matching against every configured target
	// instead of only the first (IS_MULTI_COPY_TRADING).
	MultiCopy bool
	// MinBuy is the smallest observed buy notional, in lamports, that
	// is copied (THRESHOLD_BUY).
	MinBuy uint64
	// MaxBuy is the largest observed buy notional, in lamports, that
	// is copied; zero means unbounded (THRESHOLD_SELL).
	MaxBuy uint64
	// MaxWaitTime is how long a position may stay open before the
	// sweep force-sells it (MAX_WAIT_TIME, milliseconds).
	MaxWaitTime time.Duration

	// ArbThreshold is the cross-venue price difference, in percent,
	// above which an opportunity is recorded (ARBITRAGE_THRESHOLD).
	ArbThreshold float64
	// MinLiquidity is the quote-side reserve, in lamports, both venues
	// must hold for an opportunity to count (MIN_LIQUIDITY).
	MinLiquidity float64
	// MonitorMints are token mints whose pools are price-polled even
	// without an open position (MONITOR_TOKEN_MINTS, comma separated).
	MonitorMints []string

	// ExpireWindow bounds how stale a buy may get before broadcast is
	// abandoned (EXPIRE_CONDITION, milliseconds).
	ExpireWindow time.Duration
	// SlippageBps is the default slippage tolerance in basis points
	// (SLIPPAGE_BPS).
	SlippageBps uint64

	// PostgresDSN selects the postgres-backed stores when set
	// (POSTGRES_DSN).
	PostgresDSN string
	// ClickhouseDSN selects the clickhouse-backed price sample store
	// when set (CLICKHOUSE_DSN).
	ClickhouseDSN string
	// RecordsDir is where per-transaction record files land
	// (RECORDS_DIR).
	RecordsDir string
	// PoolCachePath is the pool cache JSON file (POOL_CACHE_PATH).
	PoolCachePath string

	// MetricsAddr is the listen address for /metrics and /health
	// (METRICS_ADDR).
	MetricsAddr string
}

// Load reads the environment into a Config. A .env file in the working
// directory is applied first when present; a missing file is normal.
// Unset or malformed variables fall back to their defaults.
func Load(logger *log.Logger) *Config {
	if logger == nil {
		logger = log.Default()
	}
	if err := godotenv.Load(); err != nil {
		logger.Println("no .env - using defaults")
	}

	cfg := &Config{
		WSEndpoint:    os.Getenv("WS_URL"),
		RPCEndpoint:   os.Getenv("RPC_URL"),
		MultiCopy:     envBool("IS_MULTI_COPY_TRADING", false),
		MinBuy:        envUint("THRESHOLD_BUY", 0),
		MaxBuy:        envUint("THRESHOLD_SELL", 0),
		MaxWaitTime:   envMillis("MAX_WAIT_TIME", 60_000),
		ArbThreshold:  envFloat("ARBITRAGE_THRESHOLD", 1.5),
		MinLiquidity:  envFloat("MIN_LIQUIDITY", 10_000_000),
		MonitorMints:  splitList(os.Getenv("MONITOR_TOKEN_MINTS")),
		ExpireWindow:  envMillis("EXPIRE_CONDITION", 10_000),
		SlippageBps:   envUint("SLIPPAGE_BPS", 50),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN: os.Getenv("CLICKHOUSE_DSN"),
		RecordsDir:    envString("RECORDS_DIR", "records"),
		PoolCachePath: envString("POOL_CACHE_PATH", "pool_cache.json"),
		MetricsAddr:   envString("METRICS_ADDR", ":9090"),
	}

	// Single mode treats the whole value as one address, commas
	// included; only multi mode splits.
	raw := os.Getenv("COPY_TRADING_TARGET_ADDRESS")
	if cfg.MultiCopy {
		cfg.CopyTargets = splitList(raw)
	} else if addr := strings.TrimSpace(raw); addr != "" {
		cfg.CopyTargets = []string{addr}
	}

	return cfg
}

// Validate checks required fields and value ranges. WS_URL is checked
// by the monitor binary, which is the only one that streams.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.ArbThreshold <= 0 {
		return fmt.Errorf("ARBITRAGE_THRESHOLD must be positive, got %v", c.ArbThreshold)
	}
	if c.SlippageBps >= 10_000 {
		return fmt.Errorf("SLIPPAGE_BPS must be below 10000, got %d", c.SlippageBps)
	}
	if c.MaxWaitTime <= 0 {
		return fmt.Errorf("MAX_WAIT_TIME must be positive, got %v", c.MaxWaitTime)
	}
	if c.ExpireWindow <= 0 {
		return fmt.Errorf("EXPIRE_CONDITION must be positive, got %v", c.ExpireWindow)
	}
	if c.MaxBuy > 0 && c.MaxBuy < c.MinBuy {
		return fmt.Errorf("THRESHOLD_SELL %d is below THRESHOLD_BUY %d", c.MaxBuy, c.MinBuy)
	}
	return nil
}

// IsCopyTarget reports whether actor is a configured copy target.
// Single mode matches only the first configured address; multi mode
// matches any of them. No targets means nothing matches.
func (c *Config) IsCopyTarget(actor string) bool {
	if actor == "" || len(c.CopyTargets) == 0 {
		return false
	}
	if !c.MultiCopy {
		return actor == c.CopyTargets[0]
	}
	for _, t := range c.CopyTargets {
		if t == actor {
			return true
		}
	}
	return false
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envUint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envMillis(key string, def uint64) time.Duration {
	return time.Duration(envUint(key, def)) * time.Millisecond
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
