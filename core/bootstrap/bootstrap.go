package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/mangadesu/premiumbot/core/config"
	coredatabase "github.com/mangadesu/premiumbot/core/database"
	"github.com/mangadesu/premiumbot/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(logger.Options) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects to the database, and applies migrations.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	lcfg := opts.Config.Logging
	if err := loggerInit(logger.Options{
		Level:       lcfg.Level,
		Format:      lcfg.Format,
		DebugSample: lcfg.DebugSample,
		Dir:         lcfg.Dir,
		File:        lcfg.BotFile,
		Profile:     lcfg.Profile,
	}); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Config.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
