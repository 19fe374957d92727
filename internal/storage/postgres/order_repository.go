package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const orderColumns = `
	id, order_number, batch_id, buyer_id, seller_id, currency,
	subtotal_minor, tax_minor, delivery_minor, total_minor,
	street, city, state, pincode, expected_delivery_at,
	payment_method, payment_status, payment_transaction_id,
	status, version, created_at, updated_at`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		q := r.store.conn(ctx)

		addr := order.Delivery.Address
		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		`,
			order.ID, order.OrderNumber, order.BatchID, order.BuyerID, order.SellerID, order.Currency,
			order.Pricing.SubtotalMinor, order.Pricing.TaxMinor, order.Pricing.DeliveryMinor, order.Pricing.TotalMinor,
			addr.Street, addr.City, addr.State, addr.Pincode, order.Delivery.ExpectedDate.UTC(),
			order.Payment.Method, string(order.Payment.Status), order.Payment.TransactionID,
			string(order.Status), order.Version, order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderNumberTaken
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range order.Items {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, product_id, name, image, quantity, price_minor)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, order.ID, i, item.ProductID, item.Name, item.Image, item.Quantity, item.PriceMinor); err != nil {
				return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	q := r.store.conn(ctx)
	order, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, q, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter, page domain.Page) ([]domain.Order, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	page = page.Normalize()
	where, args := orderWhere(filter)
	q := r.store.conn(ctx)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM orders%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, page.Limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	for i := range orders {
		items, err := r.loadItems(ctx, q, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}

	return orders, total, nil
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	q := r.store.conn(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_method = $2,
		    payment_status = $3,
		    payment_transaction_id = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $6
		  AND version = $7
	`,
		string(order.Status),
		order.Payment.Method,
		string(order.Payment.Status),
		order.Payment.TransactionID,
		order.UpdatedAt.UTC(),
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var id string
	err = q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, order.ID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrOrderNotFound
	case err != nil:
		return fmt.Errorf("check order exists: %w", err)
	default:
		return domain.ErrOrderVersionConflict
	}
}

func (r *orderRepository) loadItems(ctx context.Context, q executor, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, name, image, quantity, price_minor
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Image, &item.Quantity, &item.PriceMinor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order         domain.Order
		addr          domain.Address
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.BatchID, &order.BuyerID, &order.SellerID, &order.Currency,
		&order.Pricing.SubtotalMinor, &order.Pricing.TaxMinor, &order.Pricing.DeliveryMinor, &order.Pricing.TotalMinor,
		&addr.Street, &addr.City, &addr.State, &addr.Pincode, &order.Delivery.ExpectedDate,
		&order.Payment.Method, &paymentStatus, &order.Payment.TransactionID,
		&status, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Delivery.Address = addr
	order.Payment.Status = domain.PaymentStatus(paymentStatus)
	order.Status = domain.OrderStatus(status)
	order.Delivery.ExpectedDate = order.Delivery.ExpectedDate.UTC()
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

func orderWhere(filter domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.BuyerID != "" {
		add("buyer_id = $%d", filter.BuyerID)
	}
	if filter.SellerID != "" {
		add("seller_id = $%d", filter.SellerID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var _ domain.OrderRepository = (*orderRepository)(nil)
