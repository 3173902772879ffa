package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegbarsky/tradeport-backend/api/controllers"
	"github.com/olegbarsky/tradeport-backend/api/middleware"
	"github.com/olegbarsky/tradeport-backend/internal/auth"
	"github.com/olegbarsky/tradeport-backend/internal/basket"
	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/internal/contacts"
	"github.com/olegbarsky/tradeport-backend/internal/importer"
	"github.com/olegbarsky/tradeport-backend/internal/orders"
	"github.com/olegbarsky/tradeport-backend/pkg/config"
	"github.com/olegbarsky/tradeport-backend/pkg/db"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cacheP redis.Pinger,
	authService auth.Service,
	catalogService catalog.Service,
	importerService importer.Service,
	basketService basket.Service,
	ordersService orders.Service,
	contactsService contacts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cacheP, logg))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/register/confirm", controllers.AuthConfirm(authService, logg))
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/password-reset", controllers.PasswordResetRequest(authService, logg))
		r.Post("/password-reset/confirm", controllers.PasswordResetConfirm(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/account", func(r chi.Router) {
			r.Get("/", controllers.AccountDetails(authService, logg))
			r.Patch("/", controllers.AccountUpdate(authService, logg))
		})

		r.Get("/shops", controllers.CatalogShops(catalogService, logg))
		r.Get("/categories", controllers.CatalogCategories(catalogService, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.CatalogProducts(catalogService, logg))
			r.Get("/{productId}", controllers.CatalogProductDetail(catalogService, logg))
		})

		r.Route("/basket", func(r chi.Router) {
			r.Get("/", controllers.BasketView(basketService, logg))
			r.Post("/items", controllers.BasketAddItems(basketService, logg))
			r.Put("/items", controllers.BasketUpdateItems(basketService, logg))
			r.Delete("/items", controllers.BasketRemoveItems(basketService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Post("/", controllers.OrdersPlace(ordersService, logg))
			r.Get("/{orderId}", controllers.OrdersDetail(ordersService, logg))
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", controllers.ContactsList(contactsService, logg))
			r.Post("/", controllers.ContactsCreate(contactsService, logg))
			r.Put("/", controllers.ContactsUpdate(contactsService, logg))
			r.Delete("/", controllers.ContactsDelete(contactsService, logg))
		})

		r.Route("/partner", func(r chi.Router) {
			r.Use(middleware.RequirePartner(logg))
			r.Post("/update-feed", controllers.PartnerUpdateFeed(importerService, cfg.Importer.MaxFeedBytes, logg))
			r.Route("/state", func(r chi.Router) {
				r.Get("/", controllers.PartnerState(catalogService, logg))
				r.Post("/", controllers.PartnerSetState(catalogService, logg))
			})
			r.Get("/orders", controllers.PartnerOrders(ordersService, logg))
		})
	})

	return r
}
