// Package poolcache persists the token-to-pools mapping discovered by
// venue scans. The JSON file on disk is the durable copy; the in-memory map
// is authoritative while the process runs and every mutation writes the file
// back synchronously.
package poolcache

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CachedPool is one pool known for a token, as stored in the cache file.
// Price, liquidity and the per-pool timestamp stay nil until the first
// price update lands.
type CachedPool struct {
	PoolID         string   `json:"pool_id"`
	DexName        string   `json:"dex_name"`
	BaseMint       string   `json:"base_mint"`
	QuoteMint      string   `json:"quote_mint"`
	LastKnownPrice *float64 `json:"last_known_price,omitempty"`
	LastUpdated    *int64   `json:"last_updated,omitempty"`
	Liquidity      *float64 `json:"liquidity,omitempty"`
}

type cacheFile struct {
	Pools       map[string][]CachedPool `json:"pools"`
	LastUpdated *int64                  `json:"last_updated,omitempty"`
}

// Cache is the mutex-guarded pool cache. One mutex covers both the map and
// the file write, so saved files never interleave.
type Cache struct {
	mu          sync.Mutex
	path        string
	pools       map[string][]CachedPool
	lastUpdated *int64
	saveFails   uint64
	logger      *log.Logger
}

// Load reads the cache file at path. A missing or unreadable file is not an
// error: discovery starts from scratch and the first mutation recreates the
// file.
func Load(path string, logger *log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.Default()
	}

	c := &Cache{
		path:   path,
		pools:  make(map[string][]CachedPool),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("pool cache %s unreadable, starting empty: %v", path, err)
		}
		return c, nil
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Printf("pool cache %s corrupt, starting empty: %v", path, err)
		return c, nil
	}

	if f.Pools != nil {
		c.pools = f.Pools
	}
	c.lastUpdated = f.LastUpdated
	return c, nil
}

// Upsert adds p to the pools known for mint, replacing the entry with the
// same pool id if one exists. The cache file is rewritten before returning.
func (c *Cache) Upsert(mint string, p CachedPool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	replaced := false
	for i, existing := range c.pools[mint] {
		if existing.PoolID == p.PoolID {
			c.pools[mint][i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		c.pools[mint] = append(c.pools[mint], p)
	}

	c.touchLocked()
	c.saveLocked()
}

// UpdatePrice records a fresh price and liquidity for one pool of mint.
// It reports whether the pool was known; unknown pools are left alone and
// nothing is written.
func (c *Cache) UpdatePrice(mint, poolID string, price, liquidity float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pools, ok := c.pools[mint]
	if !ok {
		return false
	}
	for i := range pools {
		if pools[i].PoolID != poolID {
			continue
		}
		now := time.Now().Unix()
		pools[i].LastKnownPrice = &price
		pools[i].Liquidity = &liquidity
		pools[i].LastUpdated = &now

		c.touchLocked()
		c.saveLocked()
		return true
	}
	return false
}

// Pools returns a copy of the pools known for mint, nil when none.
func (c *Cache) Pools(mint string) []CachedPool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pools, ok := c.pools[mint]
	if !ok {
		return nil
	}
	out := make([]CachedPool, len(pools))
	copy(out, pools)
	return out
}

// Tokens returns every mint with at least one cached pool.
func (c *Cache) Tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.pools))
	for mint := range c.pools {
		out = append(out, mint)
	}
	return out
}

// Len returns the number of tracked mints.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pools)
}

// Save rewrites the cache file from the current in-memory state.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked()
}

// SaveFailures returns how many synchronous saves have failed since load.
// The in-memory state stays authoritative across failures.
func (c *Cache) SaveFailures() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveFails
}

func (c *Cache) touchLocked() {
	now := time.Now().Unix()
	c.lastUpdated = &now
}

// saveLocked persists after a mutation. Failure is counted and logged, never
// propagated: memory moves on and the next successful save catches up.
func (c *Cache) saveLocked() {
	if err := c.writeLocked(); err != nil {
		c.saveFails++
		c.logger.Printf("pool cache save failed (%d total): %v", c.saveFails, err)
	}
}

func (c *Cache) writeLocked() error {
	data, err := json.MarshalIndent(cacheFile{
		Pools:       c.pools,
		LastUpdated: c.lastUpdated,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pool cache: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create pool cache dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write pool cache: %w", err)
	}
	return nil
}
