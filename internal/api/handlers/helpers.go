package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// statusFor maps orchestrator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidPost):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// authorizeChannel returns a fiber error unless the channel exists and is
// owned by the authenticated user.
func authorizeChannel(c *fiber.Ctx, channels repository.ChannelRepository, channelID string) error {
	channel, err := channels.GetChannelCredentials(c.UserContext(), channelID)
	if err != nil {
		slog.Info(err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "Unable to load channel")
	}
	if channel == nil {
		return fiber.NewError(fiber.StatusNotFound, "Channel not found")
	}
	if strconv.FormatInt(channel.UserID, 10) != GetUserID(c) {
		return fiber.NewError(fiber.StatusForbidden, "Channel belongs to another user")
	}
	return nil
}

func errorResponse(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
