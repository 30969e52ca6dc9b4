package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/angelmondragon/store-manager/api/controllers"
	"github.com/angelmondragon/store-manager/api/middleware"
	"github.com/angelmondragon/store-manager/internal/inventory"
	"github.com/angelmondragon/store-manager/internal/orders"
	"github.com/angelmondragon/store-manager/internal/products"
	"github.com/angelmondragon/store-manager/internal/users"
	"github.com/angelmondragon/store-manager/pkg/config"
	"github.com/angelmondragon/store-manager/pkg/logger"
	"github.com/angelmondragon/store-manager/pkg/redis"
)

// Dependencies carries everything the HTTP surface is built from.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Inventory inventory.Service
	Products  products.Service
	Users     users.Service
	Orders    orders.Service

	// Idempotency is optional; without it Idempotency-Key headers are ignored.
	Idempotency redis.IdempotencyStore
	// Ready lists the dependencies probed by /health/ready.
	Ready map[string]controllers.Pinger
	// Gatherer backs /metrics; defaults to the prometheus default registry.
	Gatherer       prometheus.Gatherer
	TracerProvider trace.TracerProvider
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	env := cfg.App.Env

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Get("/health-check", controllers.HealthCheck(env))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(env))
		r.Get("/ready", controllers.HealthReady(env, logg, deps.Ready))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/products", func(r chi.Router) {
		r.Post("/", controllers.CreateProduct(deps.Products, logg))
		r.Get("/", controllers.ListProducts(deps.Products, logg))
		r.Get("/{productId}", controllers.GetProduct(deps.Inventory, deps.Products, logg))
		r.Put("/{productId}", controllers.UpdateProduct(deps.Products, logg))
		r.Delete("/{productId}", controllers.DeleteProduct(deps.Products, logg))
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", controllers.CreateUser(deps.Users, logg))
		r.Get("/{userId}", controllers.GetUser(deps.Users, logg))
		r.Delete("/{userId}", controllers.DeleteUser(deps.Users, logg))
	})

	idempotent := middleware.Idempotency(deps.Idempotency, logg)

	r.Route("/stocks", func(r chi.Router) {
		r.With(idempotent).Post("/", controllers.AdjustStock(deps.Inventory, logg))
		r.Get("/{productId}", controllers.GetStock(deps.Inventory, logg))
		r.Delete("/{productId}", controllers.DeleteStock(deps.Inventory, logg))
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(idempotent).Post("/", controllers.PlaceOrder(deps.Orders, logg))
		r.Get("/", controllers.ListOrders(deps.Orders, logg))
		r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
		r.With(idempotent).Delete("/{orderId}", controllers.CancelOrder(deps.Orders, logg))
	})

	if deps.TracerProvider == nil {
		return r
	}
	return otelhttp.NewHandler(r, "store-manager-api",
		otelhttp.WithTracerProvider(deps.TracerProvider),
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/metrics" && req.URL.Path != "/health/live"
		}),
	)
}
