package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"musshk-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const cartColumns = `id::text, session_id, user_id, status, total, shipping_address, payment_method, gateway_order_id, expires_at, created_at, updated_at`

func (r *postgresRepo) GetOpenBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return fetchCart(ctx, r.pool, `
SELECT `+cartColumns+`
FROM carts
WHERE session_id = $1 AND status IN ('active', 'pending')
`, sessionID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return fetchCart(ctx, r.pool, `
SELECT `+cartColumns+`
FROM carts
WHERE id = $1
`, id)
}

func (r *postgresRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Cart, error) {
	return fetchCart(ctx, r.pool, `
SELECT `+cartColumns+`
FROM carts
WHERE gateway_order_id = $1
ORDER BY created_at DESC
LIMIT 1
`, gatewayOrderID)
}

func (r *postgresRepo) AddItem(ctx context.Context, sessionID string, item domain.CartItem, ttl time.Duration) (*domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cartID, expiresAt, err := lockOpenCart(ctx, tx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cartID, err = createCart(ctx, tx, sessionID, ttl)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !time.Now().Before(expiresAt):
		// Stale cart the reaper has not reclaimed yet; replace it so the
		// one-open-cart-per-session index does not block the new one.
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
			return nil, err
		}
		cartID, err = createCart(ctx, tx, sessionID, ttl)
		if err != nil {
			return nil, err
		}
	}

	lineTotal := item.UnitPrice * int64(item.Quantity)
	if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, name, size, unit_price, quantity, image, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (cart_id, product_id, size) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity,
    total = cart_items.unit_price * (cart_items.quantity + EXCLUDED.quantity)
`, cartID, item.ProductID, item.Name, item.Size, item.UnitPrice, item.Quantity, item.Image, lineTotal); err != nil {
		return nil, err
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return nil, err
	}

	cart, err := fetchCart(ctx, tx, `
SELECT `+cartColumns+`
FROM carts
WHERE id = $1
`, cartID)
	if err != nil {
		return nil, err
	}
	return cart, tx.Commit(ctx)
}

func (r *postgresRepo) SetItemQuantity(ctx context.Context, sessionID, itemRef string, quantity int) (*domain.Cart, error) {
	return r.mutateLine(ctx, sessionID, itemRef, func(tx pgx.Tx, lineID string) error {
		if quantity < 1 {
			_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID)
			return err
		}
		_, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = $1, total = unit_price * $1
WHERE id = $2
`, quantity, lineID)
		return err
	})
}

func (r *postgresRepo) RemoveItem(ctx context.Context, sessionID, itemRef string) (*domain.Cart, error) {
	return r.mutateLine(ctx, sessionID, itemRef, func(tx pgx.Tx, lineID string) error {
		_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID)
		return err
	})
}

// mutateLine resolves itemRef against the locked open cart and applies fn to
// the matched line. itemRef is matched against the line id first, then the
// product reference as a compatibility fallback.
func (r *postgresRepo) mutateLine(ctx context.Context, sessionID, itemRef string, fn func(tx pgx.Tx, lineID string) error) (*domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cartID, expiresAt, err := lockOpenCart(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(expiresAt) {
		return nil, domain.ErrNotFound
	}

	lineID, err := resolveLine(ctx, tx, cartID, itemRef)
	if err != nil {
		return nil, err
	}

	if err := fn(tx, lineID); err != nil {
		return nil, err
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return nil, err
	}

	cart, err := fetchCart(ctx, tx, `
SELECT `+cartColumns+`
FROM carts
WHERE id = $1
`, cartID)
	if err != nil {
		return nil, err
	}
	return cart, tx.Commit(ctx)
}

func (r *postgresRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `
DELETE FROM carts
WHERE session_id = $1 AND status IN ('active', 'pending')
`, sessionID)
	return err
}

func (r *postgresRepo) BeginCheckout(ctx context.Context, in BeginCheckoutInput) (*domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cartID, expiresAt, err := lockOpenCart(ctx, tx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(expiresAt) {
		return nil, domain.ErrCartExpired
	}

	var itemCount int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&itemCount); err != nil {
		return nil, err
	}
	if itemCount == 0 {
		return nil, domain.ErrEmptyCart
	}

	addr, err := json.Marshal(in.ShippingAddress)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
UPDATE carts
SET shipping_address = $1,
    payment_method = $2,
    user_id = COALESCE($3, user_id),
    status = 'pending',
    updated_at = now()
WHERE id = $4
`, addr, in.PaymentMethod, in.UserID, cartID); err != nil {
		return nil, err
	}

	cart, err := fetchCart(ctx, tx, `
SELECT `+cartColumns+`
FROM carts
WHERE id = $1
`, cartID)
	if err != nil {
		return nil, err
	}
	return cart, tx.Commit(ctx)
}

func (r *postgresRepo) SetGatewayOrderID(ctx context.Context, cartID, gatewayOrderID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE carts
SET gateway_order_id = $1, updated_at = now()
WHERE id = $2 AND status = 'pending'
`, gatewayOrderID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCartNotPending
	}
	return nil
}

func (r *postgresRepo) RevertPending(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cartID string
	err := r.pool.QueryRow(ctx, `
UPDATE carts
SET status = 'active', updated_at = now()
WHERE session_id = $1 AND status = 'pending'
RETURNING id::text
`, sessionID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, cartID)
}

// MarkFailed flips a pending cart to failed. A cart that already left
// pending (converted, reaped) is left untouched; webhook retries make this a
// routine case, not an error.
func (r *postgresRepo) MarkFailed(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE carts
SET status = 'failed', updated_at = now()
WHERE id = $1 AND status = 'pending'
`, cartID)
	return err
}

func (r *postgresRepo) DeleteExpired(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) ListByStatus(ctx context.Context, status string) ([]domain.Cart, error) {
	return r.list(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE status = $1
ORDER BY created_at DESC
`, status)
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]domain.Cart, error) {
	return r.list(ctx, `
SELECT `+cartColumns+`
FROM carts
ORDER BY created_at DESC
`)
}

func (r *postgresRepo) list(ctx context.Context, query string, args ...any) ([]domain.Cart, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var carts []domain.Cart
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		carts = append(carts, *cart)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range carts {
		items, err := loadItems(ctx, r.pool, carts[i].ID)
		if err != nil {
			return nil, err
		}
		carts[i].Items = items
	}
	return carts, nil
}

func createCart(ctx context.Context, tx pgx.Tx, sessionID string, ttl time.Duration) (string, error) {
	var cartID string
	err := tx.QueryRow(ctx, `
INSERT INTO carts (session_id, expires_at)
VALUES ($1, $2)
ON CONFLICT (session_id) WHERE status IN ('active', 'pending') DO NOTHING
RETURNING id::text
`, sessionID, time.Now().Add(ttl)).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	// Lost a creation race; the winner's row exists, lock it instead.
	cartID, _, err = lockOpenCart(ctx, tx, sessionID)
	return cartID, err
}

func lockOpenCart(ctx context.Context, tx pgx.Tx, sessionID string) (string, time.Time, error) {
	var cartID string
	var expiresAt time.Time
	err := tx.QueryRow(ctx, `
SELECT id::text, expires_at
FROM carts
WHERE session_id = $1 AND status IN ('active', 'pending')
FOR UPDATE
`, sessionID).Scan(&cartID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, domain.ErrNotFound
		}
		return "", time.Time{}, err
	}
	return cartID, expiresAt, nil
}

func resolveLine(ctx context.Context, tx pgx.Tx, cartID, itemRef string) (string, error) {
	var lineID string
	err := tx.QueryRow(ctx, `
SELECT id::text
FROM cart_items
WHERE cart_id = $1 AND id::text = $2
`, cartID, itemRef).Scan(&lineID)
	if err == nil {
		return lineID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = tx.QueryRow(ctx, `
SELECT id::text
FROM cart_items
WHERE cart_id = $1 AND product_id = $2
ORDER BY created_at ASC
LIMIT 1
`, cartID, itemRef).Scan(&lineID)
	if err == nil {
		return lineID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	ids, err := currentLineIDs(ctx, tx, cartID)
	if err != nil {
		return "", err
	}
	return "", &domain.LineNotFoundError{LineIDs: ids}
}

func currentLineIDs(ctx context.Context, q querier, cartID string) ([]string, error) {
	rows, err := q.Query(ctx, `
SELECT id::text
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC
`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func fetchCart(ctx context.Context, q querier, query string, args ...any) (*domain.Cart, error) {
	cart, err := scanCart(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	items, err := loadItems(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCart(row rowScanner) (*domain.Cart, error) {
	var cart domain.Cart
	var addrRaw []byte
	var paymentMethod *string
	if err := row.Scan(
		&cart.ID,
		&cart.SessionID,
		&cart.UserID,
		&cart.Status,
		&cart.Total,
		&addrRaw,
		&paymentMethod,
		&cart.GatewayOrderID,
		&cart.ExpiresAt,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(addrRaw) > 0 {
		var addr domain.ShippingAddress
		if err := json.Unmarshal(addrRaw, &addr); err != nil {
			return nil, err
		}
		cart.ShippingAddress = &addr
	}
	if paymentMethod != nil {
		cart.PaymentMethod = *paymentMethod
	}
	return &cart, nil
}

func loadItems(ctx context.Context, q querier, cartID string) ([]domain.CartItem, error) {
	rows, err := q.Query(ctx, `
SELECT id::text, cart_id::text, product_id, name, size, unit_price, quantity, image, total, created_at
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC
`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Name,
			&item.Size,
			&item.UnitPrice,
			&item.Quantity,
			&item.Image,
			&item.Total,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func updateCartTotal(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET total = COALESCE((
	SELECT SUM(total)
	FROM cart_items
	WHERE cart_id = $1
), 0),
    updated_at = now()
WHERE id = $1
`, cartID)
	return err
}
