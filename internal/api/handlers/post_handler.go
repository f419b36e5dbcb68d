package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
)

type PostHandler struct {
	s        service.PostService
	channels repository.ChannelRepository
}

func NewPostHandler(service service.PostService, channels repository.ChannelRepository) *PostHandler {
	return &PostHandler{s: service, channels: channels}
}

func (h *PostHandler) ListHistory(c *fiber.Ctx) error {
	channelID := c.Params("channelId")
	postID := c.Params("postId")

	if err := authorizeChannel(c, h.channels, channelID); err != nil {
		return errorResponse(c, err)
	}

	history, err := h.s.History(c.UserContext(), channelID, postID)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": "Unable to list posting history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(history)
}
