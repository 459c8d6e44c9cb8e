package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/versostore/verso-backend/internal/config"
	"github.com/versostore/verso-backend/internal/logger"
	"github.com/versostore/verso-backend/internal/metrics"
	"github.com/versostore/verso-backend/internal/middleware"
	"github.com/versostore/verso-backend/internal/modules/account"
	"github.com/versostore/verso-backend/internal/modules/audit"
	"github.com/versostore/verso-backend/internal/modules/auth"
	"github.com/versostore/verso-backend/internal/modules/cart"
	"github.com/versostore/verso-backend/internal/modules/catalog"
	"github.com/versostore/verso-backend/internal/modules/order"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.AppEnv)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		return
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Error("ping database", "error", err)
		return
	}
	log.Info("connected to database")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(metrics.Middleware)
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	requireAuth := middleware.RequireAuth(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)

	// ── Identity & Authorization ────────────────────────────
	recorder := audit.NewPostgresRecorder(db, log)
	authority := account.NewAuthority(recorder)

	accountRepo := account.NewPostgresRepository(db)
	accountService := account.NewService(accountRepo, authority)
	account.NewHandler(accountService).RegisterRoutes(router, requireAuth)

	authService := auth.NewService(accountRepo, cfg.JWTSecret, cfg.TokenTTL)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Catalog ─────────────────────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo, accountRepo, authority)
	catalog.NewHandler(catalogService).RegisterRoutes(router, requireAuth)

	// ── Cart ────────────────────────────────────────────────
	cartStore := cart.NewRedisStore(rdb)
	cartService := cart.NewService(cartStore, catalogRepo)
	cart.NewHandler(cartService).RegisterRoutes(router, requireAuth, optionalAuth)

	// ── Orders ──────────────────────────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(orderRepo, cartStore, catalogRepo,
		accountRepo, authority, recorder, cfg.Pricing, log)
	order.NewHandler(orderService).RegisterRoutes(router, requireAuth, optionalAuth)

	// ── Start Server ────────────────────────────────────────
	log.Info("verso api server starting", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Error("server stopped", "error", err)
	}
}
