package main

import (
	"fmt"
	"os"

	"github.com/fekuna/pantry-service/config"
	"github.com/fekuna/pantry-service/migrations"
	"github.com/fekuna/pantry-service/pkg/database/postgres"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "pantry",
		Usage: "household inventory ledger and offline sync service",
		Before: func(*cli.Context) error {
			_ = godotenv.Load() // Load .env file if it exists
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the gRPC, health and consumption listener servers",
				Action: serveAction,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: migrateAction(func(m migrator) error { return m.up() }),
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
						},
						Action: func(c *cli.Context) error {
							steps := c.Int("steps")
							return migrateAction(func(m migrator) error { return m.down(steps) })(c)
						},
					},
					{
						Name:   "version",
						Usage:  "print the applied schema version",
						Action: migrateAction(func(m migrator) error { return m.version() }),
					},
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
		FilePath:          cfg.Logger.FilePath,
		MaxSizeMB:         cfg.Logger.MaxSizeMB,
		MaxBackups:        cfg.Logger.MaxBackups,
		MaxAgeDays:        cfg.Logger.MaxAgeDays,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	return logger.NewZapLogger(logConfig)
}

func postgresConfig(cfg *config.Config) *postgres.Config {
	return &postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
	}
}

type migrator struct {
	up      func() error
	down    func(steps int) error
	version func() error
}

func migrateAction(run func(m migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadEnv()
		if err != nil {
			return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
		}
		appLogger := newLogger(cfg)
		defer appLogger.Sync()

		db, err := postgres.NewPostgres(postgresConfig(cfg))
		if err != nil {
			return cli.Exit(fmt.Sprintf("connect postgres: %v", err), 1)
		}
		defer db.Close()

		return run(migrator{
			up: func() error {
				if err := migrations.Up(db); err != nil {
					return err
				}
				appLogger.Info("Migrations applied", zap.String("db_name", cfg.Postgres.DBName))
				return nil
			},
			down: func(steps int) error {
				if err := migrations.Down(db, steps); err != nil {
					return err
				}
				appLogger.Info("Migrations rolled back", zap.Int("steps", steps))
				return nil
			},
			version: func() error {
				v, dirty, err := migrations.Version(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "version %d (dirty: %t)\n", v, dirty)
				return nil
			},
		})
	}
}
