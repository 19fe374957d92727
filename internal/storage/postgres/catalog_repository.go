package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	categoryColumns = `id, name, slug, description, image, parent_id, is_active, sort_order, created_at, updated_at`
	productColumns  = `
	id, seller_id, name, description, category_id,
	price_minor, mrp_minor, currency, quantity, low_stock_threshold,
	images, tags, rating_average, rating_count, status, created_at, updated_at`
)

type categoryRepository struct {
	store *Store
}

// NewCategoryRepository создаёт PostgreSQL-реализацию CategoryRepository.
func NewCategoryRepository(store *Store) domain.CategoryRepository {
	return &categoryRepository{store: store}
}

func (r *categoryRepository) Create(ctx context.Context, c domain.Category) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.store.conn(ctx).ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		c.ID, c.Name, c.Slug, c.Description, c.Image, nullString(c.ParentID),
		c.IsActive, c.SortOrder, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCategorySlugTaken
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Get(ctx context.Context, id string) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	c, err := scanCategory(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE ($1 = FALSE OR is_active)
		ORDER BY sort_order ASC, name ASC
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return result, nil
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var (
		c      domain.Category
		parent sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.Image, &parent,
		&c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return domain.Category{}, err
	}
	c.ParentID = parent.String
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

type productRepository struct {
	store *Store
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(ctx context.Context, p domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	images, err := marshalStrings(p.Images)
	if err != nil {
		return err
	}
	tags, err := marshalStrings(p.Tags)
	if err != nil {
		return err
	}

	_, err = r.store.conn(ctx).ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		p.ID, p.SellerID, p.Name, p.Description, nullString(p.CategoryID),
		p.Price.AmountMinor, p.Price.MRPMinor, p.Price.Currency, p.Inventory.Quantity, p.Inventory.LowStockThreshold,
		images, tags, p.Ratings.Average, p.Ratings.Count, string(p.Status), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanProduct(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, page domain.Page) ([]domain.Product, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	page = page.Normalize()
	where, args := productWhere(filter)
	q := r.store.conn(ctx)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM products%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, productColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0, page.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return result, total, nil
}

func (r *productRepository) UpdateRatings(ctx context.Context, id string, ratings domain.Ratings) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `
		UPDATE products
		SET rating_average = $2,
		    rating_count = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id, ratings.Average, ratings.Count)
	if err != nil {
		return fmt.Errorf("update product ratings: %w", err)
	}
	return expectAffected(res, domain.ErrProductNotFound)
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p        domain.Product
		category sql.NullString
		status   string
		images   []byte
		tags     []byte
	)
	if err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Description, &category,
		&p.Price.AmountMinor, &p.Price.MRPMinor, &p.Price.Currency, &p.Inventory.Quantity, &p.Inventory.LowStockThreshold,
		&images, &tags, &p.Ratings.Average, &p.Ratings.Count, &status, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return domain.Product{}, fmt.Errorf("decode product images: %w", err)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return domain.Product{}, fmt.Errorf("decode product tags: %w", err)
	}
	p.CategoryID = category.String
	p.Status = domain.ProductStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func productWhere(filter domain.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.CategoryID != "" {
		add("category_id = $?", filter.CategoryID)
	}
	if filter.SellerID != "" {
		add("seller_id = $?", filter.SellerID)
	}
	if filter.Status != "" {
		add("status = $?", string(filter.Status))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(name ILIKE $? OR description ILIKE $? OR tags::text ILIKE $?)", "%"+escapeLike(search)+"%")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode string list: %w", err)
	}
	return raw, nil
}

var (
	_ domain.CategoryRepository = (*categoryRepository)(nil)
	_ domain.ProductRepository  = (*productRepository)(nil)
)
