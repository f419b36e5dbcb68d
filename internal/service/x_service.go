package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/h2non/filetype"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	xMaxMedia     = 4
	xMaxImageSize = 5 * mib
	xMaxVideoSize = 512 * mib
	xSegmentSize  = 1 * mib
)

type xService struct {
	apiURL         string
	uploadURL      string
	oauthConfig    *oauth1.Config
	httpClient     *http.Client
	downloader     *mediaDownloader
	statusAttempts int
	// checkAfterUnit scales the server supplied check_after_secs.
	checkAfterUnit time.Duration
}

func NewXService(cfg config.Config, client *http.Client) PlatformAdapter {
	return &xService{
		apiURL:         strings.TrimRight(cfg.X.APIURL, "/"),
		uploadURL:      cfg.X.UploadURL,
		oauthConfig:    oauth1.NewConfig(cfg.X.ConsumerKey, cfg.X.ConsumerSecret),
		httpClient:     client,
		downloader:     newMediaDownloader(client, cfg.X.DownloadTimeout),
		statusAttempts: cfg.X.StatusAttempts,
		checkAfterUnit: time.Second,
	}
}

func (s *xService) Platform() models.PlatformID {
	return models.PlatformX
}

func (s *xService) Publish(ctx context.Context, req *PublishRequest) (*models.PublishOutcome, error) {
	if _, err := ClassifyMedia(req.Media); err != nil {
		return nil, err
	}
	if len(req.Media) > xMaxMedia {
		return nil, fmt.Errorf("%w: x accepts at most %d media items, got %d", ErrUnsupportedMedia, xMaxMedia, len(req.Media))
	}

	creds := req.Credentials
	if len(req.Media) > 0 && (creds.OAuthToken == "" || creds.OAuthTokenSecret == "" || s.oauthConfig.ConsumerKey == "") {
		return nil, fmt.Errorf("%w: media upload needs oauth1 user credentials", ErrCredential)
	}

	bearer := bearerClient(ctx, s.httpClient, creds.AccessToken)
	username, err := s.whoAmI(ctx, bearer)
	if err != nil {
		return nil, err
	}

	var mediaIDs []string
	if len(req.Media) > 0 {
		signed := s.oauthConfig.Client(
			context.WithValue(ctx, oauth1.HTTPClient, s.httpClient),
			oauth1.NewToken(creds.OAuthToken, creds.OAuthTokenSecret),
		)
		for i, m := range req.Media {
			id, err := s.uploadMedia(ctx, signed, m)
			if err != nil {
				return nil, fmt.Errorf("media item %d: %w", i, err)
			}
			mediaIDs = append(mediaIDs, id)
		}
	}

	tweetID, err := s.createTweet(ctx, bearer, req.Message, mediaIDs)
	if err != nil {
		return nil, err
	}

	slog.Info("published to x", "username", username, "media", len(mediaIDs))
	result := map[string]any{"id": tweetID}
	if len(mediaIDs) > 0 {
		result["media_ids"] = mediaIDs
	}
	return successOutcome(models.PlatformX, "Published to X", result), nil
}

func (s *xService) whoAmI(ctx context.Context, bearer *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/2/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	status, body, err := doRequest(bearer, req)
	if err != nil {
		return "", fmt.Errorf("verify credentials: %w", err)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "", fmt.Errorf("%w: x rejected the access token: %s", ErrCredential, errorDetail(body))
	case !isSuccess(status):
		return "", protocolError("verify credentials", status, errorDetail(body))
	}
	return gjson.GetBytes(body, "data.username").String(), nil
}

func (s *xService) createTweet(ctx context.Context, bearer *http.Client, text string, mediaIDs []string) (string, error) {
	payload := map[string]any{"text": text}
	if len(mediaIDs) > 0 {
		payload["media"] = map[string]any{"media_ids": mediaIDs}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, err := doRequest(bearer, req)
	if err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}
	if !isSuccess(status) {
		return "", protocolError("create tweet", status, errorDetail(respBody))
	}

	id := gjson.GetBytes(respBody, "data.id").String()
	if id == "" {
		return "", protocolError("create tweet", status, "response has no data.id")
	}
	return id, nil
}

func (s *xService) uploadMedia(ctx context.Context, signed *http.Client, m models.MediaRef) (string, error) {
	data, err := s.downloader.Download(ctx, m.URL)
	if err != nil {
		return "", err
	}

	if m.IsVideo {
		if len(data) > xMaxVideoSize {
			return "", fmt.Errorf("%w: video is %d bytes, limit is %d", ErrUnsupportedMedia, len(data), xMaxVideoSize)
		}
		return s.uploadVideo(ctx, signed, data)
	}

	if len(data) > xMaxImageSize {
		return "", fmt.Errorf("%w: image is %d bytes, limit is %d", ErrUnsupportedMedia, len(data), xMaxImageSize)
	}
	return s.uploadImage(ctx, signed, data)
}

func (s *xService) uploadImage(ctx context.Context, signed *http.Client, data []byte) (string, error) {
	category := "tweet_image"
	if kind, _ := filetype.Match(data); kind.Extension == "gif" {
		category = "tweet_gif"
	}

	body, err := s.postMultipart(ctx, signed, "image upload", map[string]string{
		"media_data":     base64.StdEncoding.EncodeToString(data),
		"media_category": category,
	}, nil)
	if err != nil {
		return "", err
	}
	return mediaIDFrom("image upload", body)
}

// uploadVideo runs INIT, APPEND and FINALIZE, then waits for server side
// processing when FINALIZE reports it.
func (s *xService) uploadVideo(ctx context.Context, signed *http.Client, data []byte) (string, error) {
	mediaType := "video/mp4"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mediaType = kind.MIME.Value
	}

	body, err := s.postForm(ctx, signed, "INIT", url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(len(data))},
		"media_type":     {mediaType},
		"media_category": {"tweet_video"},
	})
	if err != nil {
		return "", err
	}
	mediaID, err := mediaIDFrom("INIT", body)
	if err != nil {
		return "", err
	}

	for i, segment := range lo.Chunk(data, xSegmentSize) {
		_, err := s.postMultipart(ctx, signed, fmt.Sprintf("APPEND %d", i), map[string]string{
			"command":       "APPEND",
			"media_id":      mediaID,
			"segment_index": strconv.Itoa(i),
		}, segment)
		if err != nil {
			return "", err
		}
	}

	body, err = s.postForm(ctx, signed, "FINALIZE", url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	})
	if err != nil {
		return "", err
	}

	if info := gjson.GetBytes(body, "processing_info"); info.Exists() {
		if err := s.waitForProcessing(ctx, signed, mediaID, info); err != nil {
			return "", err
		}
	}

	slog.Debug("uploaded video to x", "media_id", mediaID, "bytes", len(data))
	return mediaID, nil
}

// waitForProcessing polls STATUS, sleeping for the server supplied
// check_after_secs between polls.
func (s *xService) waitForProcessing(ctx context.Context, signed *http.Client, mediaID string, info gjson.Result) error {
	for attempt := 1; ; attempt++ {
		switch state := info.Get("state").String(); state {
		case "succeeded":
			return nil
		case "failed":
			detail := info.Get("error.message").String()
			if detail == "" {
				detail = "media processing failed"
			}
			return protocolError("STATUS", 0, detail)
		}

		if attempt > s.statusAttempts {
			return fmt.Errorf("%w: media %s still processing after %d status checks", ErrTimeout, mediaID, s.statusAttempts)
		}

		wait := time.Duration(max(info.Get("check_after_secs").Int(), 1)) * s.checkAfterUnit
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		params := url.Values{"command": {"STATUS"}, "media_id": {mediaID}}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.uploadURL+"?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		status, body, err := doRequest(signed, req)
		if err != nil {
			return fmt.Errorf("STATUS: %w", err)
		}
		if !isSuccess(status) {
			return protocolError("STATUS", status, errorDetail(body))
		}

		info = gjson.GetBytes(body, "processing_info")
		if !info.Exists() {
			return nil
		}
	}
}

func (s *xService) postForm(ctx context.Context, signed *http.Client, step string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.send(signed, step, req)
}

func (s *xService) postMultipart(ctx context.Context, signed *http.Client, step string, fields map[string]string, media []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("error writing field %s: %w", k, err)
		}
	}
	if media != nil {
		part, err := w.CreateFormFile("media", "blob")
		if err != nil {
			return nil, fmt.Errorf("error creating form file: %w", err)
		}
		if _, err := part.Write(media); err != nil {
			return nil, fmt.Errorf("error writing media: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("error closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.send(signed, step, req)
}

func (s *xService) send(signed *http.Client, step string, req *http.Request) ([]byte, error) {
	status, body, err := doRequest(signed, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if !isSuccess(status) {
		return nil, protocolError(step, status, errorDetail(body))
	}
	return body, nil
}

func mediaIDFrom(step string, body []byte) (string, error) {
	id := gjson.GetBytes(body, "media_id_string").String()
	if id == "" {
		return "", protocolError(step, 0, "response has no media_id_string")
	}
	return id, nil
}
