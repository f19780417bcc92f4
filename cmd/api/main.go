package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/georgemunganga/printa-storefront/internal/config"
	"github.com/georgemunganga/printa-storefront/internal/httplog"
	"github.com/georgemunganga/printa-storefront/internal/logger"
	"github.com/georgemunganga/printa-storefront/internal/money"
	"github.com/georgemunganga/printa-storefront/internal/modules/catalog"
	"github.com/georgemunganga/printa-storefront/internal/modules/order"
	"github.com/georgemunganga/printa-storefront/internal/modules/shop"
	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	os.Exit(finish(log, run(cfg, log)))
}

// finish logs a fatal run error and flushes the logger before the process exits.
func finish(log *logger.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("storefront stopped", "error", err)
		code = 1
	}
	log.Sync()
	return code
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter, err := money.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}

	// ── Database (only when a driver needs it) ──────────────
	var db *sql.DB
	if cfg.NeedsDatabase() {
		db, err = openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("connected to postgres")
	}

	// ── Storage ─────────────────────────────────────────────
	backend, err := openBackend(ctx, cfg, db)
	if err != nil {
		return err
	}
	adapter := storage.NewAdapter(backend, log, storage.WithPersistTimeout(cfg.PersistTimeout))
	log.Info("storage ready", "driver", cfg.StorageDriver)

	// ── Catalog ─────────────────────────────────────────────
	catalogRepo, err := openCatalog(cfg, db)
	if err != nil {
		_ = adapter.Close(context.Background())
		return err
	}
	catalogService := catalog.NewService(catalogRepo)

	// ── Shop ────────────────────────────────────────────────
	registry := shop.NewRegistry(adapter, order.NewIDGenerator(nil), log)
	go registry.Run(ctx)
	router := newRouter(log, cfg.SessionCookie, catalogService, registry, formatter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront API listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = adapter.Close(context.Background())
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	// Pending cart and order writes are flushed before the backend closes.
	return adapter.Close(shutdownCtx)
}

func newRouter(log *logger.Logger, cookie string, products catalog.Service, registry *shop.Registry, formatter *money.Formatter) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httplog.Middleware(log))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	catalog.NewHandler(products).RegisterRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(shop.Sessions(registry, cookie))
		shop.NewHandler(products, formatter).RegisterRoutes(r)
	})
	return router
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func openBackend(ctx context.Context, cfg config.Config, db *sql.DB) (storage.Backend, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return storage.NewMemoryBackend(), nil
	case config.StorageFile:
		return storage.NewFileBackend(cfg.StorageFilePath)
	case config.StoragePostgres:
		b := storage.NewPostgresBackend(db)
		if err := b.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return b, nil
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return storage.NewRedisBackend(rdb, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openCatalog(cfg config.Config, db *sql.DB) (catalog.Repository, error) {
	switch cfg.CatalogDriver {
	case config.CatalogPostgres:
		return catalog.NewPostgresRepository(db), nil
	case config.CatalogStatic:
		if cfg.CatalogFile == "" {
			return catalog.NewStaticRepository(catalog.Seed), nil
		}
		products, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		return catalog.NewStaticRepository(products), nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.CatalogDriver)
	}
}
