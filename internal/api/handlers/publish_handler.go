package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PublishHandler struct {
	s        service.PublishService
	channels repository.ChannelRepository
	q        queue.Enqueuer
}

func NewPublishHandler(service service.PublishService, channels repository.ChannelRepository, q queue.Enqueuer) *PublishHandler {
	return &PublishHandler{s: service, channels: channels, q: q}
}

func parsePublishRequest(c *fiber.Ctx) (*transfer.PublishRequest, error) {
	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Unable to parse request body")
	}
	if req.ChannelID == "" || req.PostID == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "channelId and postId are required")
	}
	return &req, nil
}

// Publish runs a publish attempt synchronously and returns every platform
// outcome.
func (h *PublishHandler) Publish(c *fiber.Ctx) error {
	req, err := parsePublishRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := authorizeChannel(c, h.channels, req.ChannelID); err != nil {
		return errorResponse(c, err)
	}

	slog.Info("publish requested", "user_id", GetUserID(c), "channel_id", req.ChannelID, "post_id", req.PostID)

	result, err := h.s.Publish(c.UserContext(), req.ChannelID, req.PostID)
	if err != nil {
		slog.Info(err.Error())
		body := fiber.Map{"error": err.Error()}
		if result != nil {
			body["results"] = result.Outcomes
			body["successfulPlatforms"] = result.SuccessfulPlatforms
		}
		return c.Status(statusFor(err)).JSON(body)
	}

	return c.Status(fiber.StatusOK).JSON(transfer.PublishResponse{
		Message:             "Publish attempt finished",
		Results:             result.Outcomes,
		SuccessfulPlatforms: result.SuccessfulPlatforms,
	})
}

// Enqueue hands the publish attempt to the worker and returns immediately.
func (h *PublishHandler) Enqueue(c *fiber.Ctx) error {
	req, err := parsePublishRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := authorizeChannel(c, h.channels, req.ChannelID); err != nil {
		return errorResponse(c, err)
	}

	taskID, err := queue.EnqueuePublish(h.q, queue.PublishPostPayload{
		ChannelID: req.ChannelID,
		PostID:    req.PostID,
	}, 0, "")
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error queueing post",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(transfer.EnqueueResponse{
		Message: "Publish queued",
		TaskID:  taskID,
	})
}
