// Package web provides HTTP handlers and REST API endpoints for the routine
// engine: recurrence expansion, availability checks, execution lifecycle,
// equipment booking, and the upcoming worklist.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
	"github.com/labforge/labrun/pkg/services"
)

// DefaultWorklistWindowDays is the lookahead used when the upcoming endpoint
// is called without a window_days parameter.
const DefaultWorklistWindowDays = 7

type APIHandlers struct {
	routines     persistence.RoutineRepository
	store        persistence.Persistence
	availability *services.Availability
	executions   *services.Execution
	bookings     *services.Booking
	upcoming     *services.Upcoming
	validator    *validator.Validate
}

func NewAPIHandlers(
	store persistence.Persistence,
	availability *services.Availability,
	executions *services.Execution,
	bookings *services.Booking,
	upcoming *services.Upcoming,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		routines:     store.RoutineRepository(),
		store:        store,
		availability: availability,
		executions:   executions,
		bookings:     bookings,
		upcoming:     upcoming,
		validator:    validator,
	}
}

// Register mounts every route on the app. The upcoming route is registered
// before /routines/:id so "upcoming" is never captured as a routine ID.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Post("/recurrence/expand", h.ExpandRecurrence)

	app.Get("/routines/upcoming", h.GetUpcomingRoutines)
	app.Get("/routines", h.GetRoutines)
	app.Get("/routines/:id", h.GetRoutine)
	app.Get("/routines/:id/availability", h.CheckAvailability)
	app.Post("/routines/:id/executions", h.StartExecution)

	app.Get("/executions/:id", h.GetExecution)
	app.Patch("/executions/:id/steps/:stepId", h.SetStepCompletion)
	app.Post("/executions/:id/complete", h.CompleteExecution)
	app.Post("/executions/:id/cancel", h.CancelExecution)
	app.Delete("/executions/:id/bookings", h.ReleaseBookings)

	app.Post("/equipment/:id/bookings", h.CreateBooking)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) ExpandRecurrence(c fiber.Ctx) error {
	var req ExpandRecurrenceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.WindowEnd.After(req.WindowStart) {
		return badRequest(c, "window_end must be after window_start")
	}

	dates := req.Recurrence.Expand(req.WindowStart, req.WindowEnd, req.MaxResults)

	return c.JSON(ExpandRecurrenceResponse{Dates: dates})
}

func (h *APIHandlers) GetRoutines(c fiber.Ctx) error {
	routines, err := h.routines.Routines(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"routines":    routines,
		"total_count": len(routines),
	})
}

func (h *APIHandlers) GetRoutine(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Routine ID is required")
	}

	routine, err := h.routines.RoutineByID(c.Context(), id)
	if err != nil {
		if persistence.IsRoutineNotFound(err) {
			return notFound(c, "Routine not found")
		}

		return internalError(c, err)
	}

	return c.JSON(routine)
}

func (h *APIHandlers) CheckAvailability(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Routine ID is required")
	}

	asOf := time.Now().UTC()

	if asOfStr := c.Query("as_of"); asOfStr != "" {
		parsed, err := time.Parse(time.RFC3339, asOfStr)
		if err != nil {
			return badRequest(c, "as_of must be RFC 3339: "+err.Error())
		}

		asOf = parsed.UTC()
	}

	routine, err := h.routines.RoutineByID(c.Context(), id)
	if err != nil {
		if persistence.IsRoutineNotFound(err) {
			return notFound(c, "Routine not found")
		}

		return internalError(c, err)
	}

	report, err := h.availability.Check(c.Context(), routine, asOf)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Routine ID is required")
	}

	var req StartExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.executions.Start(c.Context(), id, req.ExecutedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executions.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) SetStepCompletion(c fiber.Ctx) error {
	id := c.Params("id")
	stepID := c.Params("stepId")

	if id == "" || stepID == "" {
		return badRequest(c, "Execution ID and step ID are required")
	}

	var req StepCompletionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.executions.SetStepCompletion(c.Context(), id, stepID, *req.Completed, req.Notes)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CompleteExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	req := CompleteExecutionRequest{}
	// The body is optional: completing with no notes and declared quantities
	// is the common case.
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	execution, err := h.executions.Complete(c.Context(), id, req.Notes, req.ActualMaterials)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executions.Cancel(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ReleaseBookings(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if err := h.bookings.Release(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateBooking(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Equipment ID is required")
	}

	var req CreateBookingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	interval := models.Interval{Start: req.StartTime, End: req.EndTime}

	booking, err := h.bookings.Book(c.Context(), id, interval, req.OwnerExecutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (h *APIHandlers) GetUpcomingRoutines(c fiber.Ctx) error {
	windowDays := DefaultWorklistWindowDays

	if windowStr := c.Query("window_days"); windowStr != "" {
		parsed, err := strconv.Atoi(windowStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "window_days must be a positive integer")
		}

		windowDays = parsed
	}

	entries, err := h.upcoming.Worklist(c.Context(), windowDays, time.Now().UTC())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"window_days": windowDays,
		"entries":     entries,
		"total_count": len(entries),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Labrun API is healthy"
	httpStatus := http.StatusOK

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Labrun API is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
