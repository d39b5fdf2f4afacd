package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/labforge/labrun/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusConflict).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps the engine's error taxonomy onto problem responses.
// Error strings already name the offending material, step, or interval, so
// the detail is enough for a UI to highlight what is blocking.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNotFound(err):
		return notFound(c, err.Error())

	case errors.Is(err, services.ErrIncompleteSteps):
		problem := problems.NewStatusProblem(fiber.StatusUnprocessableEntity).
			WithInstance(c.Path()).
			WithType("incomplete_steps").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case errors.Is(err, services.ErrInsufficientStock):
		return conflict(c, "insufficient_stock", err.Error())

	case errors.Is(err, services.ErrBookingConflict):
		return conflict(c, "booking_conflict", err.Error())

	case errors.Is(err, services.ErrInvalidExecutionState):
		return conflict(c, "invalid_state", err.Error())

	case errors.Is(err, services.ErrInvalidInterval):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}
