package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

func createTestOpportunity(mint string, diffPct float64) *domain.Opportunity {
	return &domain.Opportunity{
		Timestamp:          "20260825143000",
		TokenMint:          mint,
		BuyDex:             "raydium_amm",
		BuyPrice:           0.200,
		BuyPool:            "pool-buy-" + mint,
		SellDex:            "whirlpool",
		SellPrice:          0.200 * (1 + diffPct/100),
		SellPool:           "pool-sell-" + mint,
		PriceDifferencePct: diffPct,
		MinLiquidity:       25_000_000,
	}
}

func TestOpportunityStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOpportunityStore(pool)

	opp := createTestOpportunity("mint-A", 2.5)

	err := store.Insert(ctx, opp)
	require.NoError(t, err)

	opps, err := store.GetByMint(ctx, "mint-A")
	require.NoError(t, err)
	require.Len(t, opps, 1)

	retrieved := opps[0]
	assert.Equal(t, opp.Timestamp, retrieved.Timestamp)
	assert.Equal(t, opp.TokenMint, retrieved.TokenMint)
	assert.Equal(t, opp.BuyDex, retrieved.BuyDex)
	assert.InDelta(t, opp.BuyPrice, retrieved.BuyPrice, 0.0001)
	assert.Equal(t, opp.BuyPool, retrieved.BuyPool)
	assert.Equal(t, opp.SellDex, retrieved.SellDex)
	assert.InDelta(t, opp.SellPrice, retrieved.SellPrice, 0.0001)
	assert.Equal(t, opp.SellPool, retrieved.SellPool)
	assert.InDelta(t, opp.PriceDifferencePct, retrieved.PriceDifferencePct, 0.0001)
	assert.InDelta(t, opp.MinLiquidity, retrieved.MinLiquidity, 0.0001)
}

func TestOpportunityStore_GetAllInsertionOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOpportunityStore(pool)

	diffs := []float64{3.0, 1.8, 2.4, 1.7}
	for i, d := range diffs {
		require.NoError(t, store.Insert(ctx, createTestOpportunity(fmt.Sprintf("mint-%d", i), d)))
	}

	opps, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, opps, 4)

	for i, d := range diffs {
		assert.InDelta(t, d, opps[i].PriceDifferencePct, 0.0001)
	}
}

func TestOpportunityStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOpportunityStore(pool)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.Opportunity{BuyDex: "raydium_amm"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
