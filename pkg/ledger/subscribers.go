package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/stocknews/internal/models"
)

// Subscribers reads the recipient list from the users table. Only
// verified, subscribed users are eligible for the daily fan-out.
// Implements types.SubscriberSource.
type Subscribers struct {
	pool       *pgxpool.Pool
	adminEmail string
}

func NewSubscribers(pool *pgxpool.Pool, adminEmail string) *Subscribers {
	return &Subscribers{pool: pool, adminEmail: adminEmail}
}

// EnsureSchema creates the users table if absent.
func (s *Subscribers) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			subscribed BOOLEAN NOT NULL DEFAULT true,
			email_verified BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}
	return nil
}

// Subscribed lists every verified, subscribed recipient.
func (s *Subscribers) Subscribed(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email, name, subscribed, email_verified
		FROM users
		WHERE subscribed AND email_verified
		ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %v", err)
	}
	defer rows.Close()

	var subs []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		if err := rows.Scan(&sub.Email, &sub.Name, &sub.Subscribed, &sub.EmailVerified); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// AdminEmail returns the configured operator address.
func (s *Subscribers) AdminEmail(_ context.Context) (string, error) {
	if s.adminEmail == "" {
		return "", fmt.Errorf("ledger: no admin email configured")
	}
	return s.adminEmail, nil
}
