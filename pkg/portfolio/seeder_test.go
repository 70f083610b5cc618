package portfolio_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/stocknews/pkg/portfolio"
)

type fixedPrices struct {
	price float64
	calls int
}

func (f *fixedPrices) GetPrice(_ context.Context, _ string) float64 {
	f.calls++
	return f.price
}

func testSeeder(t *testing.T, prices portfolio.PriceSource) (*portfolio.Seeder, *pgxpool.Pool) {
	t.Helper()
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set, skipping portfolio integration test")
	}

	pool, err := pgxpool.New(context.Background(), connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	seeder := portfolio.NewSeeder(portfolio.SeederConfig{
		Pool:   pool,
		Prices: prices,
		Rand:   rand.New(rand.NewSource(1)),
	})
	require.NoError(t, seeder.EnsureSchema(context.Background()))
	return seeder, pool
}

func uniqueUser() string {
	return fmt.Sprintf("user-%d", time.Now().UnixNano())
}

func TestSeed_CreatesDemoAndRealPortfolios(t *testing.T) {
	prices := &fixedPrices{price: 200}
	seeder, pool := testSeeder(t, prices)
	ctx := context.Background()
	userID := uniqueUser()

	require.NoError(t, seeder.Seed(ctx, userID))

	var portfolios int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM portfolios WHERE user_id = $1`, userID).Scan(&portfolios))
	assert.Equal(t, 2, portfolios)

	holdings, cash, goal, err := seeder.Holdings(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, holdings, 8)
	assert.Equal(t, portfolio.DefaultDemoCash, cash)
	assert.NotEmpty(t, goal)

	for _, h := range holdings {
		assert.Equal(t, 200.0, h.CurrentPrice)
		// Buy price stays within ±10% of current
		assert.GreaterOrEqual(t, h.AvgPrice, 180.0)
		assert.LessOrEqual(t, h.AvgPrice, 220.0)
		assert.GreaterOrEqual(t, h.Shares, 1.0)
	}
}

func TestSeed_SkipsWhenPortfoliosExist(t *testing.T) {
	prices := &fixedPrices{price: 150}
	seeder, _ := testSeeder(t, prices)
	ctx := context.Background()
	userID := uniqueUser()

	require.NoError(t, seeder.Seed(ctx, userID))
	callsAfterFirst := prices.calls

	require.NoError(t, seeder.Seed(ctx, userID))
	assert.Equal(t, callsAfterFirst, prices.calls)

	holdings, _, _, err := seeder.Holdings(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, holdings, 8)
}

func TestRefreshPrices_UpdatesOpenTrades(t *testing.T) {
	prices := &fixedPrices{price: 300}
	seeder, _ := testSeeder(t, prices)
	ctx := context.Background()
	userID := uniqueUser()

	require.NoError(t, seeder.Seed(ctx, userID))

	prices.price = 333
	require.NoError(t, seeder.RefreshPrices(ctx))

	holdings, _, _, err := seeder.Holdings(ctx, userID)
	require.NoError(t, err)
	for _, h := range holdings {
		assert.Equal(t, 333.0, h.CurrentPrice)
	}
}
