package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const demoSessionID = "sess_demo_cart_0000000000000000"

type itemSeed struct {
	ProductID string
	Name      string
	Size      string
	UnitPrice int64
	Quantity  int
	Image     string
}

// Apply inserts a demo cart for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	cartID, err := ensureCart(ctx, pool, demoSessionID)
	if err != nil {
		return fmt.Errorf("ensure cart: %w", err)
	}

	items := []itemSeed{
		{
			ProductID: "musk-noir",
			Name:      "Musk Noir",
			Size:      "50ml",
			UnitPrice: 1499,
			Quantity:  2,
			Image:     "/images/musk-noir.jpg",
		},
		{
			ProductID: "oud-royale",
			Name:      "Oud Royale",
			Size:      "100ml",
			UnitPrice: 2999,
			Quantity:  1,
			Image:     "/images/oud-royale.jpg",
		},
	}

	for _, item := range items {
		if err := upsertItem(ctx, pool, cartID, item); err != nil {
			return fmt.Errorf("upsert item %s: %w", item.ProductID, err)
		}
	}

	const totalQ = `
UPDATE carts
SET total = COALESCE((SELECT SUM(total) FROM cart_items WHERE cart_id = $1), 0),
    updated_at = now()
WHERE id = $1
`
	if _, err := pool.Exec(ctx, totalQ, cartID); err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	return nil
}

func ensureCart(ctx context.Context, pool *pgxpool.Pool, sessionID string) (string, error) {
	const q = `
INSERT INTO carts (session_id, expires_at)
VALUES ($1, now() + interval '7 days')
ON CONFLICT (session_id) WHERE status IN ('active', 'pending')
DO UPDATE SET expires_at = EXCLUDED.expires_at, updated_at = now()
RETURNING id::text
`
	var id string
	if err := pool.QueryRow(ctx, q, sessionID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func upsertItem(ctx context.Context, pool *pgxpool.Pool, cartID string, item itemSeed) error {
	const q = `
INSERT INTO cart_items (cart_id, product_id, name, size, unit_price, quantity, image, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $5 * $6)
ON CONFLICT (cart_id, product_id, size)
DO UPDATE SET quantity = EXCLUDED.quantity, total = EXCLUDED.total
`
	_, err := pool.Exec(ctx, q, cartID, item.ProductID, item.Name, item.Size, item.UnitPrice, item.Quantity, item.Image)
	return err
}
