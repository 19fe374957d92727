package domain

import "errors"

// Классы ошибок. Каждая доменная ошибка ниже оборачивает ровно один класс,
// по нему транспортный слой выбирает HTTP-статус.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream failure")
)

// classified хранит человекочитаемое сообщение и класс ошибки.
type classified struct {
	class error
	msg   string
}

func (e *classified) Error() string { return e.msg }

func (e *classified) Unwrap() error { return e.class }

func newError(class error, msg string) error {
	return &classified{class: class, msg: msg}
}

var (
	// Корзина и оформление заказа.
	ErrCartEmpty                 = newError(ErrValidation, "Cart is empty")
	ErrDeliveryAddressIncomplete = newError(ErrValidation, "Complete delivery address is required")
	ErrQuantityInvalid           = newError(ErrValidation, "Quantity must be between 1 and 10000")
	ErrAmountOverflow            = newError(ErrValidation, "Order amount is too large")
	ErrProductIDRequired         = newError(ErrValidation, "Product ID is required")
	ErrProductSellerMissing      = newError(ErrValidation, "Product has no seller")
	ErrCartNotFound              = newError(ErrNotFound, "Cart not found")
	ErrCartItemNotFound          = newError(ErrNotFound, "Item not found in cart")

	// Заказы.
	ErrItemsRequired           = newError(ErrValidation, "Order must contain at least one item")
	ErrPricingMismatch         = newError(ErrValidation, "Order total does not match subtotal, tax and delivery")
	ErrInvalidOrderStatus      = newError(ErrValidation, "Invalid order status")
	ErrInvalidStatusTransition = newError(ErrValidation, "Order status transition is not allowed")
	ErrOrderNotFound           = newError(ErrNotFound, "Order not found")
	ErrOrderAccessDenied       = newError(ErrForbidden, "Not authorized to access this order")
	ErrOrderUpdateDenied       = newError(ErrForbidden, "Only the seller can update this order")
	ErrOrderListDenied         = newError(ErrForbidden, "Not authorized to list these orders")
	ErrOrderNumberTaken        = newError(ErrConflict, "Order number already exists")
	ErrOrderVersionConflict    = newError(ErrConflict, "Order was modified concurrently")

	// Каталог.
	ErrProductNotFound    = newError(ErrNotFound, "Product not found")
	ErrCategoryNotFound   = newError(ErrNotFound, "Category not found")
	ErrProductNameInvalid = newError(ErrValidation, "Product name is required and cannot exceed 100 characters")
	ErrProductDescInvalid = newError(ErrValidation, "Product description is required and cannot exceed 1000 characters")
	ErrPriceRequired      = newError(ErrValidation, "Price is required")
	ErrPriceNegative      = newError(ErrValidation, "Price cannot be negative")
	ErrPriceTooLarge      = newError(ErrValidation, "Price cannot exceed 10000000")
	ErrCurrencyInvalid    = newError(ErrValidation, "Currency must be one of USD, EUR, GBP, INR")
	ErrProductStatus      = newError(ErrValidation, "Invalid product status")
	ErrSellerRequired     = newError(ErrForbidden, "Only sellers can manage products")
	ErrInventoryNegative  = newError(ErrValidation, "Inventory quantity cannot be negative")
	ErrCategorySlugTaken  = newError(ErrConflict, "Category slug already exists")

	// Отзывы.
	ErrRatingInvalid      = newError(ErrValidation, "Rating must be between 1 and 5")
	ErrReviewCommentLong  = newError(ErrValidation, "Comment cannot exceed 1000 characters")
	ErrReviewProductEmpty = newError(ErrValidation, "Product is required")

	// Пользователи и аутентификация.
	ErrEmailInvalid          = newError(ErrValidation, "Please enter a valid email")
	ErrPasswordTooShort      = newError(ErrValidation, "Password must be at least 6 characters")
	ErrNameInvalid           = newError(ErrValidation, "Name must be between 2 and 50 characters")
	ErrPhoneInvalid          = newError(ErrValidation, "Please enter a valid phone number")
	ErrUserTypeInvalid       = newError(ErrValidation, "Invalid user type")
	ErrEmailTaken            = newError(ErrValidation, "User already exists with this email address")
	ErrInvalidCredentials    = newError(ErrUnauthenticated, "Invalid email or password")
	ErrAccountDeactivated    = newError(ErrUnauthenticated, "Account is deactivated")
	ErrTokenMissing          = newError(ErrUnauthenticated, "Not authorized, no token")
	ErrTokenInvalid          = newError(ErrUnauthenticated, "Not authorized, token failed")
	ErrUserNotFound          = newError(ErrNotFound, "User not found")
	ErrAccountNotFound       = newError(ErrNotFound, "No account found with this email address")
	ErrEmailRequired         = newError(ErrValidation, "Email is required")
	ErrPhoneRequired         = newError(ErrValidation, "Phone number is required")
	ErrEmailAlreadyVerified  = newError(ErrValidation, "Email is already verified")
	ErrPhoneAlreadyVerified  = newError(ErrValidation, "Phone number is already verified")
	ErrPhoneNumberMissing    = newError(ErrValidation, "No phone number found. Please add a phone number first")
	ErrCodeRequired          = newError(ErrValidation, "Verification code is required")
	ErrCodeMissing           = newError(ErrValidation, "No verification code found. Please request a new one")
	ErrCodeExpired           = newError(ErrValidation, "Verification code has expired. Please request a new one")
	ErrCodeInvalid           = newError(ErrValidation, "Invalid verification code")
	ErrNotificationFailed    = newError(ErrUpstream, "Failed to deliver notification")
	ErrNotificationSuspended = newError(ErrUpstream, "Notification provider is temporarily unavailable")

	// Идемпотентность.
	ErrIdempotencyKeyRequired         = newError(ErrValidation, "idempotency key is required")
	ErrIdempotencyRequestHashRequired = newError(ErrValidation, "idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = newError(ErrNotFound, "idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = newError(ErrConflict, "Request with this idempotency key is already being processed")
	ErrIdempotencyHashMismatch        = newError(ErrConflict, "Idempotency key was reused with a different request")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsIdempotencyConflict проверяет, связана ли ошибка с повторным использованием ключа.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
