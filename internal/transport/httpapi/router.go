package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/service/auth"
	"github.com/vladislavdragonenkov/marketplace/internal/service/cart"
	"github.com/vladislavdragonenkov/marketplace/internal/service/catalog"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/orders"
	"github.com/vladislavdragonenkov/marketplace/internal/service/reviews"
	"github.com/vladislavdragonenkov/marketplace/internal/service/verification"
)

// Services — прикладные сервисы, которые обслуживает API.
type Services struct {
	Auth         *auth.Service
	Verification *verification.Service
	Catalog      *catalog.Service
	Cart         *cart.Service
	Checkout     *checkout.Service
	Orders       *orders.Service
	Reviews      *reviews.Service
	Idempotency  IdempotencyGuard
}

// Config задаёт параметры HTTP-слоя.
type Config struct {
	Environment    string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	Logger         *log.Entry
	Metrics        *metrics.HTTPMetrics
}

// Production сообщает, скрывать ли диагностику ошибок.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// handler объединяет сервисы и общие зависимости обработчиков.
type handler struct {
	svc    Services
	errs   errorWriter
	env    string
	logger *log.Entry
	now    func() time.Time
}

// NewRouter собирает REST API под префиксом /api.
func NewRouter(cfg Config, svc Services) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	h := &handler{
		svc:    svc,
		errs:   errorWriter{production: cfg.Production(), logger: logger},
		env:    cfg.Environment,
		logger: logger,
		now:    time.Now,
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyKeyHeader},
		ExposedHeaders:   []string{idempotentReplayHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(newIPRateLimiter(cfg.RateLimit, cfg.RateWindow).middleware)
	r.Use(limitBody)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})

	authed := requireAuth(svc.Auth, h.errs)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Get("/me", h.me)
				r.Put("/profile", h.updateProfile)
				r.Delete("/delete", h.deleteAccount)
			})
		})

		r.Route("/email", func(r chi.Router) {
			r.Use(authed)
			r.Post("/send-verification", h.sendEmailVerification("Verification email sent successfully"))
			r.Post("/resend-verification", h.sendEmailVerification("Verification email resent successfully"))
			r.Post("/verify", h.verifyEmail)
		})

		r.Route("/phone", func(r chi.Router) {
			r.Use(authed)
			r.Post("/send-verification", h.sendPhoneVerification)
			r.Post("/resend-verification", h.resendPhoneVerification)
			r.Post("/verify", h.verifyPhone)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp-login", h.sendLoginOTP)
			r.Post("/verify-otp-login", h.verifyLoginOTP)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Get("/{id}", h.getCategory)
			r.With(authed).Post("/", h.createCategory)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/category/{categoryId}", h.listProductsByCategory)
			r.Get("/{id}", h.getProduct)
			r.With(authed).Post("/", h.createProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authed)
			r.Get("/", h.getCart)
			r.Post("/add", h.addToCart)
			r.Put("/item/{productId}", h.updateCartItem)
			r.Delete("/item/{productId}", h.removeCartItem)
			r.Delete("/clear", h.clearCart)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authed)
			r.With(idempotent(svc.Idempotency, h.errs)).Post("/", h.placeOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/status", h.updateOrderStatus)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/product/{productId}", h.listReviews)
			r.With(authed).Post("/", h.createReview)
		})
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success     bool      `json:"success"`
		Message     string    `json:"message"`
		Timestamp   time.Time `json:"timestamp"`
		Environment string    `json:"environment"`
	}{
		Success:     true,
		Message:     "Server is running",
		Timestamp:   h.now().UTC(),
		Environment: h.env,
	})
}
