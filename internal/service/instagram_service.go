package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/samber/lo"
)

// Readiness is the result of polling a media container.
type Readiness int

const (
	ReadinessReady Readiness = iota
	// ReadinessUnknown means the poll budget ran out before the container
	// reported FINISHED. Callers publish anyway.
	ReadinessUnknown
)

func (r Readiness) String() string {
	if r == ReadinessReady {
		return "ready"
	}
	return "unknown"
}

type instagramService struct {
	graphURL     string
	httpClient   *http.Client
	pollAttempts int
	pollInterval time.Duration
	retry        retryPolicy
}

func NewInstagramService(cfg config.Config, client *http.Client) PlatformAdapter {
	return &instagramService{
		graphURL:     strings.TrimRight(cfg.Instagram.GraphURL, "/"),
		httpClient:   client,
		pollAttempts: cfg.Instagram.PollAttempts,
		pollInterval: cfg.Instagram.PollInterval,
		retry:        retryPolicy{attempts: cfg.Instagram.RetryAttempts, delay: cfg.Instagram.RetryDelay},
	}
}

func (ig *instagramService) Platform() models.PlatformID {
	return models.PlatformInstagram
}

func (ig *instagramService) Publish(ctx context.Context, req *PublishRequest) (*models.PublishOutcome, error) {
	kind, err := ClassifyMedia(req.Media)
	if err != nil {
		return nil, err
	}

	accountID := req.Credentials.RecipientID
	token := req.Credentials.AccessToken

	var containerID string
	switch kind {
	case MediaNone:
		return nil, fmt.Errorf("%w: instagram posts need at least one media item", ErrUnsupportedMedia)
	case MediaSingleImage:
		containerID, err = ig.createContainer(ctx, "create image container", accountID, token, map[string]any{
			"media_type": "IMAGE",
			"image_url":  req.Media[0].URL,
			"caption":    req.Message,
		})
	case MediaSingleVideo:
		containerID, err = ig.createVideoContainer(ctx, accountID, token, req.Message, req.Media[0])
	case MediaCarousel:
		containerID, err = ig.createCarousel(ctx, accountID, token, req.Message, req.Media)
	}
	if err != nil {
		return nil, err
	}

	mediaID, err := ig.publishContainer(ctx, accountID, token, containerID)
	if err != nil {
		return nil, err
	}

	slog.Info("published to instagram", "account_id", accountID, "kind", kind)
	return successOutcome(models.PlatformInstagram, "Published to Instagram", map[string]any{
		"id":           mediaID,
		"container_id": containerID,
	}), nil
}

// createVideoContainer tries a REELS container first and falls back to a
// plain VIDEO container when the platform refuses it.
func (ig *instagramService) createVideoContainer(ctx context.Context, accountID, token, caption string, media models.MediaRef) (string, error) {
	thumbnail := ""
	if usableThumbnail(media.ThumbnailURL) {
		thumbnail = media.ThumbnailURL
	}

	reel := map[string]any{
		"media_type": "REELS",
		"video_url":  media.URL,
		"caption":    caption,
	}
	if thumbnail != "" {
		reel["cover_url"] = thumbnail
	}

	containerID, err := ig.createContainer(ctx, "create reels container", accountID, token, reel)
	if err != nil {
		slog.Warn("reels container rejected, falling back to video", "account_id", accountID, "error", err)

		video := map[string]any{
			"media_type": "VIDEO",
			"video_url":  media.URL,
			"caption":    caption,
		}
		if thumbnail != "" {
			video["thumb"] = thumbnail
		}

		containerID, err = ig.createContainer(ctx, "create video container", accountID, token, video)
		if err != nil {
			return "", err
		}
	}

	if _, err := ig.waitForContainerReady(ctx, containerID, token); err != nil {
		return "", err
	}
	return containerID, nil
}

func (ig *instagramService) createCarousel(ctx context.Context, accountID, token, caption string, media []models.MediaRef) (string, error) {
	children := make([]string, 0, len(media))
	for i, m := range media {
		body := map[string]any{"is_carousel_item": true}
		if m.IsVideo {
			body["media_type"] = "VIDEO"
			body["video_url"] = m.URL
		} else {
			body["image_url"] = m.URL
		}

		childID, err := ig.createContainer(ctx, fmt.Sprintf("create carousel item %d", i), accountID, token, body)
		if err != nil {
			return "", err
		}
		if m.IsVideo {
			if _, err := ig.waitForContainerReady(ctx, childID, token); err != nil {
				return "", err
			}
		}
		children = append(children, childID)
	}

	return ig.createContainer(ctx, "create carousel container", accountID, token, map[string]any{
		"media_type": "CAROUSEL",
		"caption":    caption,
		"children":   strings.Join(children, ","),
	})
}

func (ig *instagramService) createContainer(ctx context.Context, step, accountID, token string, payload map[string]any) (string, error) {
	var container transfer.InstagramContainerResponse
	if err := ig.postJSON(ctx, step, accountID+"/media", token, payload, &container); err != nil {
		return "", err
	}
	if container.ID == "" {
		return "", protocolError(step, 0, "no container id returned")
	}
	return container.ID, nil
}

func (ig *instagramService) publishContainer(ctx context.Context, accountID, token, containerID string) (string, error) {
	var published transfer.InstagramContainerResponse
	err := ig.postJSON(ctx, "publish container", accountID+"/media_publish", token, map[string]any{
		"creation_id": containerID,
	}, &published)
	if err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", protocolError("publish container", 0, "no media id returned")
	}
	return published.ID, nil
}

// waitForContainerReady polls the container status until FINISHED or ERROR.
// Running out of attempts is not an error and yields ReadinessUnknown.
func (ig *instagramService) waitForContainerReady(ctx context.Context, containerID, token string) (Readiness, error) {
	for attempt := 1; attempt <= ig.pollAttempts; attempt++ {
		status, err := ig.containerStatus(ctx, containerID, token)
		if err != nil {
			return ReadinessUnknown, err
		}

		switch status.StatusCode {
		case "FINISHED":
			slog.Debug("container ready", "container_id", containerID, "attempt", attempt)
			return ReadinessReady, nil
		case "ERROR":
			detail := lo.Ternary(status.Status != "", status.Status, "container processing failed")
			return ReadinessUnknown, protocolError("container status", 0, detail)
		}

		if attempt == ig.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ReadinessUnknown, ctx.Err()
		case <-time.After(ig.pollInterval):
		}
	}

	slog.Warn("container not confirmed ready, publishing anyway", "container_id", containerID, "attempts", ig.pollAttempts)
	return ReadinessUnknown, nil
}

func (ig *instagramService) containerStatus(ctx context.Context, containerID, token string) (*transfer.InstagramContainerStatus, error) {
	params := url.Values{
		"fields":       {"status_code,status"},
		"access_token": {token},
	}
	endpoint := ig.graphURL + "/" + containerID + "?" + params.Encode()

	return withRetry(ctx, ig.retry, "container status", func(ctx context.Context) (*transfer.InstagramContainerStatus, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}

		status, body, err := doRequest(ig.httpClient, req)
		if err != nil {
			return nil, err
		}
		if !isSuccess(status) {
			return nil, protocolError("container status", status, instagramErrorMessage(body))
		}

		var s transfer.InstagramContainerStatus
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, protocolError("container status", status, "unreadable response")
		}
		return &s, nil
	})
}

func (ig *instagramService) postJSON(ctx context.Context, step, endpoint, token string, payload map[string]any, out any) error {
	payload["access_token"] = token
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	respBody, err := withRetry(ctx, ig.retry, step, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ig.graphURL+"/"+endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		status, respBody, err := doRequest(ig.httpClient, req)
		if err != nil {
			return nil, err
		}
		if !isSuccess(status) {
			return nil, protocolError(step, status, instagramErrorMessage(respBody))
		}
		return respBody, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return protocolError(step, 0, "unreadable response")
	}
	return nil
}

func instagramErrorMessage(body []byte) string {
	var resp transfer.InstagramErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Message != "" {
		if resp.Error.ErrorUserMsg != "" {
			return resp.Error.Message + ": " + resp.Error.ErrorUserMsg
		}
		return resp.Error.Message
	}
	return errorDetail(body)
}

// usableThumbnail accepts absolute http(s) URLs whose path ends in an image
// extension.
func usableThumbnail(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "" || !filetype.IsSupported(ext) {
		return false
	}
	return strings.HasPrefix(filetype.GetType(ext).MIME.Value, "image/")
}
