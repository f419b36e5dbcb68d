package service

import (
	"fmt"

	"github.com/maheshrc27/postflow/internal/models"
)

type MediaKind string

const (
	MediaNone        MediaKind = "none"
	MediaSingleImage MediaKind = "single_image"
	MediaSingleVideo MediaKind = "single_video"
	MediaCarousel    MediaKind = "carousel"
)

// ClassifyMedia derives the publish strategy for a media set. A set holds at
// most one video and never mixes videos with images.
func ClassifyMedia(media []models.MediaRef) (MediaKind, error) {
	videos := 0
	for i, m := range media {
		if m.URL == "" {
			return "", fmt.Errorf("%w: media item %d has no url", ErrInvalidPost, i)
		}
		if m.IsVideo {
			videos++
		}
	}

	switch {
	case videos > 1:
		return "", fmt.Errorf("%w: %d videos attached, at most one is allowed", ErrInvalidPost, videos)
	case videos == 1 && len(media) > 1:
		return "", fmt.Errorf("%w: videos and images cannot be mixed", ErrInvalidPost)
	}

	switch len(media) {
	case 0:
		return MediaNone, nil
	case 1:
		if videos == 1 {
			return MediaSingleVideo, nil
		}
		return MediaSingleImage, nil
	default:
		return MediaCarousel, nil
	}
}
