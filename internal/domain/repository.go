package domain

import "context"

// UserRepository хранит учётные записи.
type UserRepository interface {
	// Create сохраняет пользователя; ErrEmailTaken, если e-mail занят.
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository хранит категории каталога.
type CategoryRepository interface {
	Create(ctx context.Context, category Category) error
	Get(ctx context.Context, id string) (Category, error)
	// List возвращает категории, отсортированные по SortOrder и имени.
	List(ctx context.Context, activeOnly bool) ([]Category, error)
}

// ProductRepository хранит товары.
type ProductRepository interface {
	Create(ctx context.Context, product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// List возвращает страницу товаров (новые первыми) и общее количество.
	List(ctx context.Context, filter ProductFilter, page Page) ([]Product, int, error)
	UpdateRatings(ctx context.Context, id string, ratings Ratings) error
}

// CartRepository хранит корзины; одна корзина на пользователя.
type CartRepository interface {
	// Get возвращает корзину или ErrCartNotFound.
	Get(ctx context.Context, userID string) (Cart, error)
	// Save создаёт или перезаписывает корзину.
	Save(ctx context.Context, cart Cart) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ; ErrOrderNumberTaken при повторе номера.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает страницу заказов (новые первыми) и общее количество.
	List(ctx context.Context, filter OrderFilter, page Page) ([]Order, int, error)
	// Save обновляет статус и оплату с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
}

// ReviewRepository хранит отзывы.
type ReviewRepository interface {
	Create(ctx context.Context, review Review) error
	ListByProduct(ctx context.Context, productID string, page Page) ([]Review, int, error)
}
