package app

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/config"
	"github.com/mx-space/footprint/internal/database"
	"github.com/mx-space/footprint/internal/modules/stats/visitor"
)

// OpenedStore is a visit store together with its probe and release hooks.
type OpenedStore struct {
	Store visitor.Store
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// OpenStore connects the backend selected by store.driver and prepares its schema.
func OpenStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*OpenedStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMySQL:
		db, err := database.Connect(cfg, true)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("resolve sql db: %w", err)
		}
		logger.Info("visit store ready", zap.String("driver", cfg.Store.Driver))
		return &OpenedStore{
			Store: visitor.NewGormStore(db),
			Ping:  sqlDB.PingContext,
			Close: func(context.Context) error { return sqlDB.Close() },
		}, nil

	case config.DriverMongo:
		m, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := visitor.NewMongoStore(m.Database, cfg.Mongo.Collection)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
		logger.Info("visit store ready", zap.String("driver", cfg.Store.Driver), zap.String("database", cfg.Mongo.Database))
		return &OpenedStore{
			Store: store,
			Ping:  func(ctx context.Context) error { return m.Client.Ping(ctx, readpref.Primary()) },
			Close: m.Close,
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory visit store, records are lost on restart")
		return &OpenedStore{
			Store: visitor.NewMemoryStore(),
			Ping:  func(context.Context) error { return nil },
			Close: func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
