package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
	"github.com/jonesrussell/north-cloud/categorizer/internal/database"
)

// DatabaseComponents holds database connection and repositories.
type DatabaseComponents struct {
	DB         *sqlx.DB
	RecordRepo *database.RecordRepository
	RulesRepo  *database.RulesRepository
}

// SetupDatabase connects to PostgreSQL and creates the schema. It returns nil
// components when the database is disabled.
func SetupDatabase(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*DatabaseComponents, error) {
	if !cfg.Database.Enabled {
		logger.Info("Database disabled, records will not be stored in PostgreSQL")
		return nil, nil
	}

	logger.Info("Connecting to PostgreSQL database",
		infralogger.String("host", cfg.Database.Host),
		infralogger.Int("port", cfg.Database.Port),
		infralogger.String("database", cfg.Database.Database),
	)

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err = database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Database connected successfully")

	return &DatabaseComponents{
		DB:         db,
		RecordRepo: database.NewRecordRepository(db),
		RulesRepo:  database.NewRulesRepository(db),
	}, nil
}
