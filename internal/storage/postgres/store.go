package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nftswap/internal/model"
)

// Store provides Postgres persistence for the swap event journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEvents inserts a batch of lifecycle events.
func (s *Store) PutEvents(events []model.SwapEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO swap_events (
				kind, swap_key, swap_id, actor, tx_hash, occurred_at, created_at
			) VALUES ($1, $2, $3, $4, $5, to_timestamp($6), now())
			ON CONFLICT (tx_hash, kind) DO NOTHING
		`,
			event.Kind,
			event.SwapKey,
			event.SwapID,
			event.Actor,
			event.TxHash,
			event.At,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
