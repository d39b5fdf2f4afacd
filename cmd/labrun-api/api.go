// Package main provides the Labrun API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/labforge/labrun/pkg/eventbus"
	"github.com/labforge/labrun/pkg/persistence"
	"github.com/labforge/labrun/pkg/services"
	"github.com/labforge/labrun/pkg/web"
)

type API struct {
	logger        *slog.Logger
	persistence   persistence.Persistence
	eventBus      eventbus.EventBus
	tracer        trace.Tracer
	worklistCache services.WorklistCache
	validate      *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	worklistCache services.WorklistCache,
) *API {
	return &API{
		logger:        logger,
		persistence:   persistence,
		eventBus:      eventBus,
		tracer:        tracer,
		worklistCache: worklistCache,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	availability := services.NewAvailability(
		a.persistence.InventoryRepository(),
		a.persistence.BookingRepository(),
	)
	executions := services.NewExecution(a.persistence, availability, a.eventBus, a.tracer, a.logger)
	bookings := services.NewBooking(a.persistence.BookingRepository(), a.logger)
	upcoming := services.NewUpcoming(a.persistence.RoutineRepository(), a.worklistCache, a.logger)

	handlers := web.NewAPIHandlers(a.persistence, availability, executions, bookings, upcoming, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Labrun API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
