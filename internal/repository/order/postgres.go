package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"musshk-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const orderColumns = `id::text, order_number, cart_id::text, user_id, total_amount, shipping_address, payment_method, payment_status, order_status, tracking_number, payment_details, created_at`

func (r *postgresRepo) CreateFromCart(ctx context.Context, cartID string, details *domain.PaymentDetails, paymentStatus string) (*domain.Order, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE carts
SET status = 'converted', updated_at = now()
WHERE id = $1 AND status = 'pending' AND expires_at > now()
`, cartID)
	if err != nil {
		return nil, false, err
	}
	if cmd.RowsAffected() == 0 {
		// Lost the race, or the cart never reached pending. If an order
		// already exists this call is a duplicate confirmation and the
		// winner's order is the answer.
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return nil, false, err
		}
		existing, lookupErr := r.GetByCartID(ctx, cartID)
		if lookupErr == nil {
			return existing, false, nil
		}
		if !errors.Is(lookupErr, domain.ErrNotFound) {
			return nil, false, lookupErr
		}
		return nil, false, r.classifyFailedSwap(ctx, cartID)
	}

	var (
		sessionID     string
		userID        *string
		total         int64
		addrRaw       []byte
		paymentMethod *string
	)
	if err := tx.QueryRow(ctx, `
SELECT session_id, user_id, total, shipping_address, payment_method
FROM carts
WHERE id = $1
`, cartID).Scan(&sessionID, &userID, &total, &addrRaw, &paymentMethod); err != nil {
		return nil, false, err
	}
	if len(addrRaw) == 0 || paymentMethod == nil {
		return nil, false, domain.ErrCartNotPending
	}

	var detailsRaw []byte
	if details != nil {
		if detailsRaw, err = json.Marshal(details); err != nil {
			return nil, false, err
		}
	}

	var orderID string
	var createdAt time.Time
	orderNumber := newOrderNumber()
	if err := tx.QueryRow(ctx, `
INSERT INTO orders (order_number, cart_id, user_id, total_amount, shipping_address, payment_method, payment_status, order_status, payment_details)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'Processing', $8)
RETURNING id::text, created_at
`, orderNumber, cartID, userID, total, addrRaw, *paymentMethod, paymentStatus, detailsRaw).Scan(&orderID, &createdAt); err != nil {
		return nil, false, err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, name, size, unit_price, quantity)
SELECT $1, product_id, name, size, unit_price, quantity
FROM cart_items
WHERE cart_id = $2
`, orderID, cartID); err != nil {
		return nil, false, err
	}

	// The cart's job is done; reclaim it so the session starts fresh.
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	created, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// classifyFailedSwap explains a failed pending→converted swap that left no
// order behind.
func (r *postgresRepo) classifyFailedSwap(ctx context.Context, cartID string) error {
	var status string
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
SELECT status, expires_at
FROM carts
WHERE id = $1
`, cartID).Scan(&status, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if status == domain.CartStatusPending && !time.Now().Before(expiresAt) {
		return domain.ErrCartExpired
	}
	return domain.ErrCartNotPending
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE id = $1
`, id)
}

func (r *postgresRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE order_number = $1
`, orderNumber)
}

func (r *postgresRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE payment_details->>'gatewayOrderId' = $1
ORDER BY created_at DESC
LIMIT 1
`, gatewayOrderID)
}

func (r *postgresRepo) GetByCartID(ctx context.Context, cartID string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE cart_id = $1
`, cartID)
}

func (r *postgresRepo) fetchOrder(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var order domain.Order
	var addrRaw, detailsRaw []byte
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CartID,
		&order.UserID,
		&order.TotalAmount,
		&addrRaw,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.OrderStatus,
		&order.TrackingNumber,
		&detailsRaw,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(addrRaw, &order.ShippingAddress); err != nil {
		return nil, err
	}
	if len(detailsRaw) > 0 {
		var details domain.PaymentDetails
		if err := json.Unmarshal(detailsRaw, &details); err != nil {
			return nil, err
		}
		order.PaymentDetails = &details
	}

	rows, err := r.pool.Query(ctx, `
SELECT id::text, order_id::text, product_id, name, size, unit_price, quantity
FROM order_items
WHERE order_id = $1
ORDER BY created_at ASC
`, order.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Size,
			&item.UnitPrice,
			&item.Quantity,
		); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("MUS-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
