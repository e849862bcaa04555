package session

import (
	"errors"

	"backend-tourguide/internal/catalog"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, mgr *Manager, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req StartTourRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		resp, err := mgr.StartTour(c.Context(), req)
		if err != nil {
			return errorResponse(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	r.Post("/:id/location", authMiddleware, func(c *fiber.Ctx) error {
		var ping LocationPing
		if err := c.BodyParser(&ping); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		update, err := mgr.UpdateLocation(c.Context(), c.Params("id"), ping)
		if err != nil {
			return errorResponse(err)
		}
		return c.JSON(update)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		view, err := mgr.GetStatus(c.Context(), c.Params("id"))
		if err != nil {
			return errorResponse(err)
		}
		return c.JSON(view)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := mgr.EndTour(c.Context(), c.Params("id")); err != nil {
			return errorResponse(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func errorResponse(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
