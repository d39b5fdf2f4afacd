package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/labforge/labrun/pkg/cmd"
	"github.com/labforge/labrun/pkg/log"
	"github.com/labforge/labrun/pkg/services"
)

const defaultWindowDays = 7

func main() {
	_ = godotenv.Load()

	logger := log.WithModule("worklist")

	command := &cli.Command{
		Name:                  "labrun-worklist",
		Usage:                 "Publish periodic upcoming-routine digests",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (postgres:// or memory://)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
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
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron schedule for digest generation",
				Value:   "0 6 * * *",
				Sources: cli.EnvVars("WORKLIST_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "window-days",
				Usage:   "Lookahead window in days",
				Value:   defaultWindowDays,
				Sources: cli.EnvVars("WORKLIST_WINDOW_DAYS"),
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

			logger.InfoContext(ctx, "Initializing worklist digest daemon")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			worklistCache := cmd.NewWorklistCache(command.String("redis-url"), logger)
			upcoming := services.NewUpcoming(store.RoutineRepository(), worklistCache, logger)

			digest := NewDigest(upcoming, eventBus, logger, command.Int("window-days"))

			scheduler := cron.New()

			_, err := scheduler.AddFunc(command.String("schedule"), func() {
				if err := digest.Publish(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to publish worklist digest", "error", err)
				}
			})
			if err != nil {
				return err
			}

			scheduler.Start()
			logger.InfoContext(ctx, "Worklist digest daemon started",
				"schedule", command.String("schedule"),
				"window_days", command.Int("window-days"),
			)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			<-scheduler.Stop().Done()

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
