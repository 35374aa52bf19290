package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/parkfinder-backend/api/controllers"
	"github.com/angelmondragon/parkfinder-backend/api/middleware"
	"github.com/angelmondragon/parkfinder-backend/internal/address"
	"github.com/angelmondragon/parkfinder-backend/internal/auth"
	"github.com/angelmondragon/parkfinder-backend/internal/parkings"
	"github.com/angelmondragon/parkfinder-backend/internal/realtime"
	"github.com/angelmondragon/parkfinder-backend/internal/requests"
	"github.com/angelmondragon/parkfinder-backend/internal/users"
	"github.com/angelmondragon/parkfinder-backend/internal/visits"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/config"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/metrics"
	"github.com/angelmondragon/parkfinder-backend/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Verifier *pkgAuth.Verifier
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Hub      *realtime.Hub
	Places   address.Service

	Auth     auth.Service
	Users    users.Service
	Parkings parkings.Service
	Visits   visits.Service
	Requests requests.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var cache controllers.Pinger
	if deps.Redis != nil {
		cache = deps.Redis
	}
	r.Get("/health", controllers.Health(cfg, logg, deps.DB, cache))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	realtimeOpts := realtime.ClientOptions{
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: cfg.Realtime.PingInterval,
	}
	r.Get("/ws", controllers.SocketConnect(deps.Hub, deps.Verifier, cfg.App.CORSOrigins, realtimeOpts, logg))

	authenticated := middleware.Auth(deps.Verifier, logg)
	admin := middleware.RequireRole(logg, enums.UserRoleAdmin)
	operators := middleware.RequireRole(logg, enums.UserRoleOwner, enums.UserRoleAdmin)
	idempotent := middleware.Idempotency(deps.Redis, logg)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Redis, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, logg))

		r.Get("/socket/status", controllers.SocketStatus(deps.Hub))

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/profile", controllers.UserProfile(deps.Users, logg))
				r.Put("/profile", controllers.UserUpdateProfile(deps.Users, logg))
				r.Get("/wallet", controllers.UserWallet(deps.Users, logg))
				r.Get("/wallet/transactions", controllers.UserWalletTransactions(deps.Users, logg))

				r.With(admin).Get("/", controllers.AdminListUsers(deps.Users, logg))
				r.With(admin).Put("/{id}/deactivate", controllers.AdminDeactivateUser(deps.Users, logg))
			})
		})

		r.Route("/parkings", func(r chi.Router) {
			r.Get("/", controllers.ParkingList(deps.Parkings, logg))
			r.Get("/nearby", controllers.ParkingNearby(deps.Parkings, logg))
			r.Get("/available", controllers.ParkingAvailable(deps.Parkings, logg))
			r.Get("/{id}", controllers.ParkingGet(deps.Parkings, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated)

				// Staff may be plain users; the service checks lot membership.
				r.Put("/{id}/vehicle-count", controllers.ParkingSetCount(deps.Parkings, logg))
				r.Post("/{id}/vehicle-count/increment", controllers.ParkingIncrementCount(deps.Parkings, logg))
				r.Post("/{id}/vehicle-count/decrement", controllers.ParkingDecrementCount(deps.Parkings, logg))

				r.Group(func(r chi.Router) {
					r.Use(operators)
					r.Post("/", controllers.ParkingCreate(deps.Parkings, logg))
					r.Get("/owner/me", controllers.ParkingListMine(deps.Parkings, logg))
					r.Put("/{id}", controllers.ParkingUpdate(deps.Parkings, logg))
					r.Delete("/{id}", controllers.ParkingDelete(deps.Parkings, logg))
					r.Post("/{id}/staff", controllers.ParkingAddStaff(deps.Parkings, logg))
					r.Delete("/{id}/staff/{userId}", controllers.ParkingRemoveStaff(deps.Parkings, logg))
				})
			})
		})

		r.Route("/visits", func(r chi.Router) {
			r.Use(authenticated, idempotent)
			r.Post("/", controllers.VisitCheckIn(deps.Visits, logg))
			r.Get("/user/me", controllers.VisitListMine(deps.Visits, logg))
			r.With(admin).Put("/{id}/verify", controllers.VisitVerify(deps.Visits, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/approved", controllers.RequestListApproved(deps.Requests, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated, idempotent)
				r.Post("/", controllers.RequestCreate(deps.Requests, logg))
				r.Get("/user/me", controllers.RequestListMine(deps.Requests, logg))
				r.Get("/nearby", controllers.RequestNearby(deps.Requests, logg))
				r.Get("/{id}", controllers.RequestGet(deps.Requests, logg))
				r.Put("/{id}", controllers.RequestUpdate(deps.Requests, logg))
				r.Delete("/{id}", controllers.RequestDelete(deps.Requests, logg))

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Get("/", controllers.RequestListAll(deps.Requests, logg))
					r.Get("/pending", controllers.RequestListPending(deps.Requests, logg))
					r.Get("/statistics", controllers.RequestStatistics(deps.Requests, logg))
					r.Put("/{id}/approve", controllers.RequestApprove(deps.Requests, logg))
					r.Put("/{id}/deny", controllers.RequestDeny(deps.Requests, logg))
				})
			})
		})

		r.Route("/places", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/autocomplete", controllers.PlacesAutocomplete(deps.Places, logg))
			r.Get("/{placeId}", controllers.PlaceResolve(deps.Places, logg))
		})
	})

	return r
}
