package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const (
	tiktokSingleChunkLimit = 5 * mib
	tiktokChunkTarget      = 10 * mib
	tiktokMinChunk         = 5 * mib
	tiktokMaxChunk         = 64 * mib
	tiktokMinTrailingChunk = 1 * mib
)

type chunkPlan struct {
	ChunkSize int64
	Count     int64
}

// planChunks sizes the chunks declared at upload init. A plan whose final
// chunk would fall under 1 MiB is redistributed into even chunks.
func planChunks(size int64) chunkPlan {
	if size <= tiktokSingleChunkLimit {
		return chunkPlan{ChunkSize: size, Count: 1}
	}

	chunk := min(int64(tiktokChunkTarget), int64(tiktokMaxChunk))
	count := ceilDiv(size, chunk)

	if trailing := size - (count-1)*chunk; trailing < tiktokMinTrailingChunk {
		chunk = max(int64(tiktokMinChunk), min(int64(tiktokMaxChunk), ceilDiv(size, count)))
		count = ceilDiv(size, chunk)
	}

	if count == 1 {
		chunk = size
	}
	return chunkPlan{ChunkSize: chunk, Count: count}
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

type tiktokService struct {
	apiURL     string
	httpClient *http.Client
	downloader *mediaDownloader
}

func NewTiktokService(cfg config.Config, client *http.Client) PlatformAdapter {
	return &tiktokService{
		apiURL:     strings.TrimRight(cfg.Tiktok.APIURL, "/"),
		httpClient: client,
		downloader: newMediaDownloader(client, cfg.Tiktok.DownloadTimeout),
	}
}

func (s *tiktokService) Platform() models.PlatformID {
	return models.PlatformTiktok
}

func (s *tiktokService) Publish(ctx context.Context, req *PublishRequest) (*models.PublishOutcome, error) {
	kind, err := ClassifyMedia(req.Media)
	if err != nil {
		return nil, err
	}
	if kind != MediaSingleVideo {
		return nil, fmt.Errorf("%w: tiktok accepts exactly one video, got %s", ErrUnsupportedMedia, kind)
	}

	video, err := s.downloader.Download(ctx, req.Media[0].URL)
	if err != nil {
		return nil, err
	}
	if !filetype.IsVideo(video) {
		slog.Warn("tiktok media does not look like a video", "open_id", req.Credentials.RecipientID)
	}

	size := int64(len(video))
	if declared := req.Media[0].Size; declared > 0 && declared != size {
		slog.Warn("downloaded size differs from declared size", "declared", declared, "actual", size)
	}
	plan := planChunks(size)

	upload, err := s.initUpload(ctx, req.Credentials.AccessToken, req.Message, size, plan)
	if err != nil {
		return nil, err
	}

	if err := s.uploadChunks(ctx, upload.UploadURL, video, plan); err != nil {
		return nil, err
	}

	slog.Info("uploaded video to tiktok inbox", "open_id", req.Credentials.RecipientID, "chunks", plan.Count, "bytes", size)
	return successOutcome(models.PlatformTiktok, "Uploaded to TikTok inbox", map[string]any{
		"publish_id": upload.PublishID,
		"status":     "uploaded_to_inbox",
	}), nil
}

func (s *tiktokService) initUpload(ctx context.Context, token, title string, size int64, plan chunkPlan) (*transfer.TiktokPublishData, error) {
	payload := transfer.TiktokInboxInitRequest{
		PostInfo: transfer.TiktokInboxPostInfo{Title: title},
		SourceInfo: transfer.TiktokFileSourceInfo{
			Source:          "FILE_UPLOAD",
			VideoSize:       size,
			ChunkSize:       plan.ChunkSize,
			TotalChunkCount: plan.Count,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/post/publish/inbox/video/init/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	status, respBody, err := doRequest(bearerClient(ctx, s.httpClient, token), req)
	if err != nil {
		return nil, fmt.Errorf("upload init: %w", err)
	}

	var result transfer.TikTokUploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, protocolError("upload init", status, "unreadable response")
	}
	if !isSuccess(status) || (result.Error.Code != "" && result.Error.Code != "ok") {
		detail := result.Error.Message
		if detail == "" {
			detail = result.Error.Code
		}
		return nil, protocolError("upload init", status, detail)
	}
	if result.Data.UploadURL == "" || result.Data.PublishID == "" {
		return nil, protocolError("upload init", status, "response is missing upload_url or publish_id")
	}
	return &result.Data, nil
}

// uploadChunks PUTs the chunks in order and stops at the first failure.
func (s *tiktokService) uploadChunks(ctx context.Context, uploadURL string, video []byte, plan chunkPlan) error {
	total := int64(len(video))
	for i := int64(0); i < plan.Count; i++ {
		start := i * plan.ChunkSize
		end := min(start+plan.ChunkSize, total) - 1

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(video[start:end+1]))
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("Content-Type", "video/mp4")
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, total))
		req.ContentLength = end - start + 1

		status, body, err := doRequest(s.httpClient, req)
		if err != nil {
			return fmt.Errorf("upload chunk %d: %w", i, err)
		}
		if !isSuccess(status) {
			return protocolError(fmt.Sprintf("upload chunk %d", i), status, errorDetail(body))
		}
		slog.Debug("uploaded tiktok chunk", "index", i, "of", plan.Count)
	}
	return nil
}
