package portfolio

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"

	"github.com/xhad/stocknews/internal/models"
)

// DefaultDemoCash is the starting cash balance of a seeded demo
// portfolio. Real portfolios start empty; the user funds them.
const DefaultDemoCash = 10000.0

const demoGoal = "Long-term growth with diversified investments"

// demoStock pairs a ticker with its seeded share range.
type demoStock struct {
	symbol    string
	minShares int
	maxShares int
}

var demoStocks = []demoStock{
	{"AAPL", 3, 8},
	{"MSFT", 1, 4},
	{"AMZN", 2, 6},
	{"GOOGL", 2, 5},
	{"META", 1, 3},
	{"TSLA", 2, 8},
	{"NVDA", 1, 3},
	{"JNJ", 3, 10},
}

// PriceSource yields the current price for a symbol. Never fails; a
// cached or fallback price always comes back.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) float64
}

// Seeder creates demo portfolios with randomized historical trades and
// keeps their prices current. Implements the onboarding path.
type Seeder struct {
	pool   *pgxpool.Pool
	prices PriceSource
	rng    *rand.Rand
	now    func() time.Time
	logger *log.Logger
}

type SeederConfig struct {
	Pool   *pgxpool.Pool
	Prices PriceSource
	Rand   *rand.Rand
	Now    func() time.Time
	Logger *log.Logger
}

func NewSeeder(config SeederConfig) *Seeder {
	if config.Rand == nil {
		config.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Seeder{
		pool:   config.Pool,
		prices: config.Prices,
		rng:    config.Rand,
		now:    config.Now,
		logger: config.Logger,
	}
}

// EnsureSchema creates the portfolio tables if absent.
func (s *Seeder) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS portfolios (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			long_term_goal TEXT NOT NULL DEFAULT '',
			cash_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create portfolios table: %v", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			portfolio_id UUID NOT NULL REFERENCES portfolios(id),
			symbol TEXT NOT NULL,
			shares DOUBLE PRECISION NOT NULL,
			buy_price DOUBLE PRECISION NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			buy_date TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %v", err)
	}

	return nil
}

// Seed creates one demo portfolio with randomized open trades and one
// empty real portfolio for the user. A user who already has portfolios
// is left untouched.
func (s *Seeder) Seed(ctx context.Context, userID string) error {
	var existing int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM portfolios WHERE user_id = $1`, userID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check existing portfolios: %v", err)
	}
	if existing > 0 {
		s.logger.Info().Str("user", userID).Msg("portfolios already exist, skipping seed")
		return nil
	}

	demoID := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO portfolios (id, user_id, name, type, long_term_goal, cash_balance)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		demoID, userID, "Demo Portfolio", "DEMO", demoGoal, DefaultDemoCash)
	if err != nil {
		return fmt.Errorf("failed to create demo portfolio: %v", err)
	}

	for _, stock := range demoStocks {
		currentPrice := s.prices.GetPrice(ctx, stock.symbol)

		// Buy price within ±10% of current, as if bought in the past
		buyPrice := currentPrice * (0.9 + s.rng.Float64()*0.2)
		shares := stock.minShares + s.rng.Intn(stock.maxShares-stock.minShares+1)
		buyDate := s.now().AddDate(0, 0, -s.rng.Intn(30))

		_, err = s.pool.Exec(ctx, `
			INSERT INTO trades (id, portfolio_id, symbol, shares, buy_price, current_price, status, buy_date)
			VALUES ($1, $2, $3, $4, $5, $6, 'open', $7)`,
			uuid.NewString(), demoID, stock.symbol, float64(shares), buyPrice, currentPrice, buyDate)
		if err != nil {
			return fmt.Errorf("failed to create trade for %s: %v", stock.symbol, err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO portfolios (id, user_id, name, type, cash_balance)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, "My Portfolio", "REAL", 0.0)
	if err != nil {
		return fmt.Errorf("failed to create real portfolio: %v", err)
	}

	s.logger.Info().Str("user", userID).Msg("created demo and real portfolios")
	return nil
}

// RefreshPrices updates current_price on every open trade, one price
// fetch per distinct symbol.
func (s *Seeder) RefreshPrices(ctx context.Context) error {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT symbol FROM trades WHERE status = 'open'`)
	if err != nil {
		return fmt.Errorf("failed to list trade symbols: %v", err)
	}

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan row: %v", err)
		}
		symbols = append(symbols, symbol)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, symbol := range symbols {
		price := s.prices.GetPrice(ctx, symbol)
		_, err := s.pool.Exec(ctx,
			`UPDATE trades SET current_price = $2 WHERE symbol = $1 AND status = 'open'`,
			symbol, price)
		if err != nil {
			return fmt.Errorf("failed to update price for %s: %v", symbol, err)
		}
		s.logger.Info().Str("symbol", symbol).Float64("price", price).Msg("price refreshed")
	}

	s.logger.Info().Int("symbols", len(symbols)).Msg("price refresh complete")
	return nil
}

// Holdings loads the open positions of a user's demo portfolio, plus
// its cash balance and goal, for the advisor.
func (s *Seeder) Holdings(ctx context.Context, userID string) ([]models.Holding, float64, string, error) {
	var portfolioID, goal string
	var cash float64
	err := s.pool.QueryRow(ctx, `
		SELECT id, long_term_goal, cash_balance FROM portfolios
		WHERE user_id = $1 AND type = 'DEMO'`, userID).Scan(&portfolioID, &goal, &cash)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to load demo portfolio: %v", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT symbol, shares, buy_price, current_price FROM trades
		WHERE portfolio_id = $1 AND status = 'open'
		ORDER BY symbol`, portfolioID)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to load trades: %v", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.Symbol, &h.Shares, &h.AvgPrice, &h.CurrentPrice); err != nil {
			return nil, 0, "", fmt.Errorf("failed to scan row: %v", err)
		}
		holdings = append(holdings, h)
	}

	return holdings, cash, goal, rows.Err()
}
