package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/labforge/labrun/pkg/cmd"
	"github.com/labforge/labrun/pkg/log"
	"github.com/labforge/labrun/pkg/otelhelper"
)

const defaultPort = 9094

func main() {
	_ = godotenv.Load()

	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "labrun-api",
		Usage:                 "Run and track laboratory routines",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (postgres:// or memory://)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "routines-path",
				Usage:   "Path to the directory containing routine definition files",
				Sources: cli.EnvVars("ROUTINES_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the worklist cache (empty disables caching)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Labrun API")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			cmd.ImportRoutineCatalog(ctx, logger, store, command.String("routines-path"))

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "labrun-api")
				if err != nil {
					logger.WarnContext(ctx, "Failed to initialize tracing, continuing without it", "error", err)
				}
			}

			worklistCache := cmd.NewWorklistCache(command.String("redis-url"), logger)

			api := NewAPI(
				logger,
				store,
				eventBus,
				tracer,
				worklistCache,
			)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
