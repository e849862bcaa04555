package channel

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateChannelRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		resp, err := svc.CreateChannel(c.Context(), req)
		if err != nil {
			return errorResponse(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	r.Post("/join", authMiddleware, func(c *fiber.Ctx) error {
		var req JoinRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		resp, err := svc.JoinChannel(c.Context(), req)
		if err != nil {
			return errorResponse(err)
		}
		return c.JSON(resp)
	})

	r.Get("/:id/participants", func(c *fiber.Ctx) error {
		views, err := svc.GetParticipants(c.Context(), c.Params("id"))
		if err != nil {
			return errorResponse(err)
		}
		return c.JSON(views)
	})

	r.Post("/:id/locations", authMiddleware, func(c *fiber.Ctx) error {
		var req ShareLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		resp, err := svc.ShareLocation(c.Context(), c.Params("id"), req)
		if err != nil {
			return errorResponse(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	r.Get("/:id/locations", authMiddleware, func(c *fiber.Ctx) error {
		locations, err := svc.SharedLocations(c.Context(), c.Params("id"), c.Query("user_id"))
		if err != nil {
			return errorResponse(err)
		}
		return c.JSON(locations)
	})

	r.Post("/:id/messages", authMiddleware, func(c *fiber.Ctx) error {
		var req SendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		resp, err := svc.SendMessage(c.Context(), c.Params("id"), req)
		if err != nil {
			return errorResponse(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	r.Get("/:id/messages", authMiddleware, func(c *fiber.Ctx) error {
		afterSeq, _ := strconv.ParseInt(c.Query("after_seq"), 10, 64)
		views, err := svc.Messages(c.Context(), c.Params("id"), c.Query("user_id"), afterSeq)
		if err != nil {
			return errorResponse(err)
		}
		return c.JSON(views)
	})

	r.Post("/:id/read", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID    string `json:"user_id"`
			MessageID string `json:"message_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.UserID == "" || body.MessageID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id and message_id required")
		}
		if err := svc.MarkRead(c.Context(), c.Params("id"), body.UserID, body.MessageID); err != nil {
			return errorResponse(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/extend", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
			Hours  int    `json:"hours"`
		}
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		expiresAt, err := svc.ExtendExpiry(c.Context(), c.Params("id"), body.UserID, body.Hours)
		if err != nil {
			return errorResponse(err)
		}
		return c.JSON(fiber.Map{"expires_at": expiresAt})
	})

	r.Post("/:id/meeting-points", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID string  `json:"user_id"`
			Label  string  `json:"label"`
			Lat    float64 `json:"lat"`
			Lng    float64 `json:"lng"`
		}
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		point := MeetingPoint{Label: body.Label, Lat: body.Lat, Lng: body.Lng}
		if err := svc.AddMeetingPoint(c.Context(), c.Params("id"), body.UserID, point); err != nil {
			return errorResponse(err)
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Post("/:id/status", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
			Status string `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		if err := svc.SetParticipantStatus(c.Context(), c.Params("id"), body.UserID, body.Status); err != nil {
			return errorResponse(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func errorResponse(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrMessageNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrExpired):
		return fiber.NewError(fiber.StatusGone, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
