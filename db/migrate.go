package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dormscout-backend/dao"
)

// Migrate creates the record table for a SQL backend. Memory and file
// backends need no schema and are skipped.
func Migrate(ctx context.Context, backend, dsn string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var dialect dao.Dialect
	switch backend {
	case "mysql":
		dialect = dao.DialectMySQL
	case "postgres", "postgresql":
		dialect = dao.DialectPostgres
	case "memory", "file":
		logger.Info("nothing to migrate", zap.String("backend", backend))
		return nil
	default:
		return fmt.Errorf("unsupported store backend: %s", backend)
	}

	store, err := dao.OpenSQLStore(ctx, dialect, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer store.Close()

	logger.Info("connected to database for migration", zap.String("backend", backend))
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("create record table: %w", err)
	}
	logger.Info("migration completed", zap.String("backend", backend))
	return nil
}
