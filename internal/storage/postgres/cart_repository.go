package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type cartRepository struct {
	store *Store
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{store: store}
}

func (r *cartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	q := r.store.conn(ctx)
	cart := domain.Cart{UserID: userID}
	err := q.QueryRowContext(ctx, `
		SELECT created_at, updated_at FROM carts WHERE user_id = $1
	`, userID).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	cart.CreatedAt = cart.CreatedAt.UTC()
	cart.UpdatedAt = cart.UpdatedAt.UTC()

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, name, image, quantity, price_minor, currency, added_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY position ASC
	`, userID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = make([]domain.CartLine, 0)
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ProductID, &line.Name, &line.Image, &line.Quantity,
			&line.PriceMinor, &line.Currency, &line.AddedAt,
		); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart item: %w", err)
		}
		line.AddedAt = line.AddedAt.UTC()
		cart.Items = append(cart.Items, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart items: %w", err)
	}

	return cart, nil
}

// Save перезаписывает корзину целиком: строка carts upsert, позиции заново.
func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		q := r.store.conn(ctx)

		if _, err := q.ExecContext(ctx, `
			INSERT INTO carts (user_id, created_at, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		`, cart.UserID, cart.CreatedAt.UTC(), cart.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, cart.UserID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}

		for i, line := range cart.Items {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO cart_items (user_id, position, product_id, name, image, quantity, price_minor, currency, added_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			`,
				cart.UserID, i, line.ProductID, line.Name, line.Image,
				line.Quantity, line.PriceMinor, line.Currency, line.AddedAt.UTC(),
			); err != nil {
				return fmt.Errorf("insert cart item %s: %w", line.ProductID, err)
			}
		}
		return nil
	})
}

var _ domain.CartRepository = (*cartRepository)(nil)
