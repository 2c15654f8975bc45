package poolcache

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testPoolID = "8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj"
)

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(os.Stderr, "[test] ", log.LstdFlags)
}

func cachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pool_cache.json")
}

func raydiumPool() CachedPool {
	return CachedPool{
		PoolID:    testPoolID,
		DexName:   "raydium_amm",
		BaseMint:  testMint,
		QuoteMint: "So11111111111111111111111111111111111111112",
	}
}

func TestCache_Load_MissingFile(t *testing.T) {
	c, err := Load(cachePath(t), testLogger(t))

	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Pools(testMint))
	assert.Empty(t, c.Tokens())
}

func TestCache_Load_CorruptFile(t *testing.T) {
	path := cachePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	c, err := Load(path, testLogger(t))

	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Upsert_PersistsAndReloads(t *testing.T) {
	path := cachePath(t)

	c, err := Load(path, testLogger(t))
	require.NoError(t, err)

	c.Upsert(testMint, raydiumPool())

	// The mutation must be on disk before Upsert returns.
	reloaded, err := Load(path, testLogger(t))
	require.NoError(t, err)
	pools := reloaded.Pools(testMint)
	require.Len(t, pools, 1)
	assert.Equal(t, testPoolID, pools[0].PoolID)
	assert.Equal(t, "raydium_amm", pools[0].DexName)
	assert.Nil(t, pools[0].LastKnownPrice)
	assert.Nil(t, pools[0].Liquidity)
}

func TestCache_Upsert_ReplacesByPoolID(t *testing.T) {
	c, err := Load(cachePath(t), testLogger(t))
	require.NoError(t, err)

	c.Upsert(testMint, raydiumPool())

	updated := raydiumPool()
	updated.DexName = "raydium_cpmm"
	c.Upsert(testMint, updated)

	pools := c.Pools(testMint)
	require.Len(t, pools, 1)
	assert.Equal(t, "raydium_cpmm", pools[0].DexName)

	other := raydiumPool()
	other.PoolID = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
	c.Upsert(testMint, other)

	assert.Len(t, c.Pools(testMint), 2)
	assert.Equal(t, 1, c.Len())
}

func TestCache_UpdatePrice_Known(t *testing.T) {
	path := cachePath(t)
	c, err := Load(path, testLogger(t))
	require.NoError(t, err)
	c.Upsert(testMint, raydiumPool())

	ok := c.UpdatePrice(testMint, testPoolID, 1.25, 20_000_000)

	require.True(t, ok)
	pools := c.Pools(testMint)
	require.Len(t, pools, 1)
	require.NotNil(t, pools[0].LastKnownPrice)
	require.NotNil(t, pools[0].Liquidity)
	require.NotNil(t, pools[0].LastUpdated)
	assert.InDelta(t, 1.25, *pools[0].LastKnownPrice, 1e-12)
	assert.InDelta(t, 20_000_000, *pools[0].Liquidity, 1e-6)

	reloaded, err := Load(path, testLogger(t))
	require.NoError(t, err)
	rp := reloaded.Pools(testMint)
	require.Len(t, rp, 1)
	require.NotNil(t, rp[0].LastKnownPrice)
	assert.InDelta(t, 1.25, *rp[0].LastKnownPrice, 1e-12)
}

func TestCache_UpdatePrice_Unknown(t *testing.T) {
	path := cachePath(t)
	c, err := Load(path, testLogger(t))
	require.NoError(t, err)
	c.Upsert(testMint, raydiumPool())

	assert.False(t, c.UpdatePrice("unknown-mint", testPoolID, 1.0, 1.0))
	assert.False(t, c.UpdatePrice(testMint, "unknown-pool", 1.0, 1.0))

	pools := c.Pools(testMint)
	require.Len(t, pools, 1)
	assert.Nil(t, pools[0].LastKnownPrice, "a miss must not touch cached pools")
}

func TestCache_Pools_ReturnsCopy(t *testing.T) {
	c, err := Load(cachePath(t), testLogger(t))
	require.NoError(t, err)
	c.Upsert(testMint, raydiumPool())

	pools := c.Pools(testMint)
	pools[0].DexName = "mutated"

	fresh := c.Pools(testMint)
	assert.Equal(t, "raydium_amm", fresh[0].DexName)
}

func TestCache_Tokens(t *testing.T) {
	c, err := Load(cachePath(t), testLogger(t))
	require.NoError(t, err)

	second := "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	c.Upsert(testMint, raydiumPool())
	c.Upsert(second, raydiumPool())

	assert.ElementsMatch(t, []string{testMint, second}, c.Tokens())
}

func TestCache_FileFormat(t *testing.T) {
	path := cachePath(t)
	c, err := Load(path, testLogger(t))
	require.NoError(t, err)
	c.Upsert(testMint, raydiumPool())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "pools")
	assert.Contains(t, raw, "last_updated")

	var pools map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw["pools"], &pools))
	require.Len(t, pools[testMint], 1)
	entry := pools[testMint][0]
	assert.Equal(t, testPoolID, entry["pool_id"])
	assert.Equal(t, "raydium_amm", entry["dex_name"])
	assert.NotContains(t, entry, "last_known_price", "unset optionals stay omitted")
}

func TestCache_SaveFailureKeepsMemory(t *testing.T) {
	// Parent "dir" is a regular file, so every save fails.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	c, err := Load(filepath.Join(blocker, "sub", "pool_cache.json"), testLogger(t))
	require.NoError(t, err)

	c.Upsert(testMint, raydiumPool())

	assert.Equal(t, uint64(1), c.SaveFailures())
	require.Len(t, c.Pools(testMint), 1, "memory stays authoritative across save failures")

	require.True(t, c.UpdatePrice(testMint, testPoolID, 2.0, 1.0))
	assert.Equal(t, uint64(2), c.SaveFailures())
}
