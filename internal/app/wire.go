package app

import (
	"fmt"
	"time"

	"meal-planner/internal/cache"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/mealsapi"
	"meal-planner/internal/metrics"
	"meal-planner/internal/shopping"
	"meal-planner/internal/storage"

	"go.uber.org/zap"
)

// New opens the local state and database and wires the backend client with
// its cache and metrics. Close the returned App when done.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	metricsStore := metrics.NewStore(db.SQL, logger)
	shoppingRepo := shopping.NewRepository(db.SQL)
	selections := shopping.NewSelectionRepository(db.SQL)

	token := store.Token()
	if token != "" && mealsapi.SessionFromToken(token).Expired(time.Now()) {
		logger.Info("stored session has expired, signing out")
		token = ""
		if err := store.SetToken(""); err != nil {
			logger.Warn("failed to clear expired session", zap.Error(err))
		}
	}

	httpClient := mealsapi.NewClient(cfg, logger,
		mealsapi.WithObserver(metricsStore),
		mealsapi.WithToken(token),
	)
	client := cache.NewCachedClient(httpClient, cache.New(cfg.CacheTTL), logger)

	a := NewApp(cfg, client, httpClient, store, shoppingRepo, selections, metricsStore, logger)
	a.closers = append(a.closers, db.Close)

	logger.Debug("application wired",
		zap.String("api_url", cfg.APIURL),
		zap.Duration("timeout", cfg.RequestTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.String("data_dir", cfg.DataDir),
	)
	return a, nil
}
