package container

import (
	"context"
	"fmt"

	"goab/adapters/postgres"
	"goab/adapters/preset"
	"goab/internal/api"
	"goab/internal/config"
	"goab/internal/errors"
	"goab/internal/logging"
	"goab/internal/migration"
	"goab/internal/pipeline"
	"goab/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *logging.Logger

	// Infrastructure, nil when DATABASE_URL is unset
	DB *sqlx.DB

	ResultRepo ports.ResultRepository
	Presets    ports.PresetLoader
	Evaluator  *pipeline.Evaluator
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	}

	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Presets:   preset.NewLoader(cfg.Metrics.PresetDir, cfg.MetricDefaults()),
		Evaluator: pipeline.New(pipeline.OptionsFromConfig(cfg), logger),
	}
	return c, nil
}

// InitDatabase connects to DATABASE_URL, runs migrations and wires the
// result repository. It is a no-op when persistence is disabled.
func (c *Container) InitDatabase(ctx context.Context) error {
	if !c.Config.PersistenceEnabled() {
		c.Logger.Debug("DATABASE_URL not set, persistence disabled")
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	return c.InitWithDatabase(ctx, db)
}

// InitWithDatabase wires components on an existing connection
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError("database connection test failed", err)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	c.ResultRepo = postgres.NewResultRepository(db)
	c.Logger.Info("result persistence enabled")
	return nil
}

// APIServer builds the HTTP server from the container's components
func (c *Container) APIServer() *api.Server {
	if c.Config.Server.GinMode != "" {
		gin.SetMode(c.Config.Server.GinMode)
	}
	return api.NewServer(c.Evaluator, c.Config.MetricDefaults(), c.ResultRepo, c.Logger)
}

// Shutdown releases resources
func (c *Container) Shutdown(ctx context.Context) error {
	_ = c.Logger.Sync()
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
