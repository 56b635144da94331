package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type PostgresStore struct {
	db postgres.Querier
}

func NewPostgresStore(db postgres.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]Item, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT items FROM carts WHERE cart_key=$1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart row: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO carts(cart_key, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (cart_key) DO UPDATE SET items = EXCLUDED.items, updated_at = now()
	`, key, b)
	return err
}
