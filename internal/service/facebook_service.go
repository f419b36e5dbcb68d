package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/tidwall/gjson"
)

type facebookService struct {
	graphURL   string
	httpClient *http.Client
}

func NewFacebookService(cfg config.Config, client *http.Client) PlatformAdapter {
	return &facebookService{
		graphURL:   strings.TrimRight(cfg.Facebook.GraphURL, "/"),
		httpClient: client,
	}
}

func (s *facebookService) Platform() models.PlatformID {
	return models.PlatformFacebook
}

func (s *facebookService) Publish(ctx context.Context, req *PublishRequest) (*models.PublishOutcome, error) {
	kind, err := ClassifyMedia(req.Media)
	if err != nil {
		return nil, err
	}

	pageID := req.Credentials.RecipientID
	token := s.pageAccessToken(ctx, pageID, req.Credentials.AccessToken)

	var result map[string]any
	switch kind {
	case MediaNone:
		id, err := s.createObject(ctx, "create feed post", pageID+"/feed", url.Values{
			"message": {req.Message},
		}, token)
		if err != nil {
			return nil, err
		}
		result = map[string]any{"id": id}

	case MediaSingleImage:
		id, err := s.createObject(ctx, "create photo", pageID+"/photos", url.Values{
			"url":     {req.Media[0].URL},
			"caption": {req.Message},
		}, token)
		if err != nil {
			return nil, err
		}
		result = map[string]any{"id": id}

	case MediaSingleVideo:
		if req.Options.FacebookVideoType == models.FacebookVideoReel {
			videoID, err := s.publishReel(ctx, pageID, token, req.Message, req.Media[0])
			if err != nil {
				return nil, err
			}
			result = map[string]any{"video_id": videoID, "type": models.FacebookVideoReel}
			break
		}

		id, err := s.createObject(ctx, "create video", pageID+"/videos", url.Values{
			"file_url":    {req.Media[0].URL},
			"description": {req.Message},
		}, token)
		if err != nil {
			return nil, err
		}
		result = map[string]any{"id": id}

	case MediaCarousel:
		id, handles, err := s.publishMultiMedia(ctx, pageID, token, req.Message, req.Media)
		if err != nil {
			return nil, err
		}
		result = map[string]any{"id": id, "media_ids": handles}
	}

	slog.Info("published to facebook", "page_id", pageID, "kind", kind)
	return successOutcome(models.PlatformFacebook, "Published to Facebook", result), nil
}

// pageAccessToken exchanges the supplied token for the page-scoped one. When
// the lookup fails the supplied token is used as-is.
func (s *facebookService) pageAccessToken(ctx context.Context, pageID, token string) string {
	params := url.Values{
		"fields":       {"access_token"},
		"access_token": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.graphURL+"/"+pageID+"?"+params.Encode(), nil)
	if err != nil {
		return token
	}

	status, body, err := doRequest(s.httpClient, req)
	if err != nil || !isSuccess(status) {
		slog.Warn("page token lookup failed, using supplied token", "page_id", pageID, "status", status)
		return token
	}

	pageToken := gjson.GetBytes(body, "access_token").String()
	if pageToken == "" {
		slog.Warn("page token lookup returned no token, using supplied token", "page_id", pageID)
		return token
	}
	return pageToken
}

func (s *facebookService) graphPost(ctx context.Context, step, endpoint string, form url.Values, token string) ([]byte, error) {
	form.Set("access_token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.graphURL+"/"+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := doRequest(s.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if !isSuccess(status) {
		return nil, protocolError(step, status, errorDetail(body))
	}
	return body, nil
}

func (s *facebookService) createObject(ctx context.Context, step, endpoint string, form url.Values, token string) (string, error) {
	body, err := s.graphPost(ctx, step, endpoint, form, token)
	if err != nil {
		return "", err
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", protocolError(step, 0, "response has no id")
	}
	return id, nil
}

// publishReel runs the start, transfer and finish phases of a reel upload.
// A failing phase stops the flow.
func (s *facebookService) publishReel(ctx context.Context, pageID, token, description string, media models.MediaRef) (string, error) {
	body, err := s.graphPost(ctx, "reel start", pageID+"/video_reels", url.Values{
		"upload_phase": {"start"},
	}, token)
	if err != nil {
		return "", err
	}

	videoID := gjson.GetBytes(body, "video_id").String()
	uploadURL := gjson.GetBytes(body, "upload_url").String()
	if videoID == "" || uploadURL == "" {
		return "", protocolError("reel start", 0, "response is missing video_id or upload_url")
	}

	if err := s.transferReel(ctx, uploadURL, token, media.URL); err != nil {
		return "", err
	}

	body, err = s.graphPost(ctx, "reel finish", pageID+"/video_reels", url.Values{
		"upload_phase": {"finish"},
		"video_id":     {videoID},
		"video_state":  {"PUBLISHED"},
		"description":  {description},
	}, token)
	if err != nil {
		return "", err
	}
	if !gjson.GetBytes(body, "success").Bool() {
		return "", protocolError("reel finish", 0, errorDetail(body))
	}

	return videoID, nil
}

// transferReel asks the upload host to pull the hosted file.
func (s *facebookService) transferReel(ctx context.Context, uploadURL, token, fileURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token)
	req.Header.Set("file_url", fileURL)

	status, body, err := doRequest(s.httpClient, req)
	if err != nil {
		return fmt.Errorf("reel transfer: %w", err)
	}
	if !isSuccess(status) {
		return protocolError("reel transfer", status, errorDetail(body))
	}
	if v := gjson.GetBytes(body, "success"); v.Exists() && !v.Bool() {
		return protocolError("reel transfer", status, errorDetail(body))
	}
	return nil
}

// publishMultiMedia uploads every item unpublished, then attaches all of
// them to a single feed post. Any failed item aborts the post.
func (s *facebookService) publishMultiMedia(ctx context.Context, pageID, token, message string, media []models.MediaRef) (string, []string, error) {
	handles := make([]string, 0, len(media))
	for i, m := range media {
		var (
			id  string
			err error
		)
		if m.IsVideo {
			id, err = s.createObject(ctx, fmt.Sprintf("upload video %d", i), pageID+"/videos", url.Values{
				"file_url":  {m.URL},
				"published": {"false"},
			}, token)
		} else {
			id, err = s.createObject(ctx, fmt.Sprintf("upload photo %d", i), pageID+"/photos", url.Values{
				"url":       {m.URL},
				"published": {"false"},
			}, token)
		}
		if err != nil {
			return "", nil, err
		}
		handles = append(handles, id)
	}

	attached := make([]map[string]string, 0, len(handles))
	for _, h := range handles {
		attached = append(attached, map[string]string{"media_fbid": h})
	}
	attachedJSON, err := json.Marshal(attached)
	if err != nil {
		return "", nil, fmt.Errorf("error marshalling attached media: %w", err)
	}

	id, err := s.createObject(ctx, "create feed post", pageID+"/feed", url.Values{
		"message":        {message},
		"attached_media": {string(attachedJSON)},
	}, token)
	if err != nil {
		return "", nil, err
	}
	return id, handles, nil
}
