package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"
)

// MarkPolicy decides whether a finished attempt marks the post published.
type MarkPolicy string

const (
	// MarkAlways marks the post published whatever the outcomes were.
	MarkAlways MarkPolicy = "always"
	// MarkOnAnySuccess marks the post published only when at least one
	// platform succeeded.
	MarkOnAnySuccess MarkPolicy = "any_success"
)

func ParseMarkPolicy(s string) (MarkPolicy, error) {
	switch p := MarkPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MarkAlways, MarkOnAnySuccess:
		return p, nil
	case "":
		return MarkAlways, nil
	default:
		return "", fmt.Errorf("unknown publish mark policy %q", s)
	}
}

// MediaURLResolver rewrites storage references into fetchable URLs.
type MediaURLResolver interface {
	ResolveMediaURL(ctx context.Context, raw string) (string, error)
}

type PublishService interface {
	Publish(ctx context.Context, channelID, postID string) (*models.PublishResult, error)
}

type publishService struct {
	posts    repository.PostRepository
	channels repository.ChannelRepository
	creds    *CredentialResolver
	media    MediaURLResolver
	policy   MarkPolicy
	adapters map[models.PlatformID]PlatformAdapter
}

// NewPublishService wires the orchestrator. media may be nil when no object
// storage is configured.
func NewPublishService(
	posts repository.PostRepository,
	channels repository.ChannelRepository,
	creds *CredentialResolver,
	media MediaURLResolver,
	policy MarkPolicy,
	adapters ...PlatformAdapter) PublishService {
	return &publishService{
		posts:    posts,
		channels: channels,
		creds:    creds,
		media:    media,
		policy:   policy,
		adapters: lo.KeyBy(adapters, func(a PlatformAdapter) models.PlatformID { return a.Platform() }),
	}
}

// Publish runs one publish attempt for a post. Errors returned before the
// fan-out carry no outcomes. A failed published-marker write returns the
// outcomes together with the error.
func (s *publishService) Publish(ctx context.Context, channelID, postID string) (*models.PublishResult, error) {
	attemptID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating attempt id: %w", err)
	}
	log := slog.With("attempt_id", attemptID, "channel_id", channelID, "post_id", postID)

	channel, err := s.channels.GetChannelCredentials(ctx, channelID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("loading channel: %w", err)
	}
	if channel == nil {
		return nil, fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
	}

	post, err := s.posts.GetPost(ctx, channelID, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("loading post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %s on channel %s", ErrNotFound, postID, channelID)
	}

	platforms, err := validatePlatforms(post.Platforms)
	if err != nil {
		return nil, err
	}
	if _, err := ClassifyMedia(post.Media); err != nil {
		return nil, err
	}

	media, err := s.resolveMedia(ctx, post.Media)
	if err != nil {
		return nil, err
	}

	log.Info("publishing post", "platforms", platforms, "media", len(media))

	outcomes := make([]models.PublishOutcome, len(platforms))
	var wg sync.WaitGroup
	for i, platform := range platforms {
		wg.Add(1)
		go func(i int, platform models.PlatformID) {
			defer wg.Done()
			outcomes[i] = s.publishTo(ctx, log, platform, channel, post, media)
		}(i, platform)
	}
	wg.Wait()

	successful := lo.Map(
		lo.Filter(outcomes, func(o models.PublishOutcome, _ int) bool { return o.Success }),
		func(o models.PublishOutcome, _ int) models.PlatformID { return o.Platform },
	)
	result := &models.PublishResult{Outcomes: outcomes, SuccessfulPlatforms: successful}

	if s.policy == MarkOnAnySuccess && len(successful) == 0 {
		log.Warn("no platform succeeded, leaving post unpublished")
		return result, nil
	}
	if err := s.posts.MarkPublished(ctx, channelID, postID); err != nil {
		log.Error("marking post published failed", "error", err)
		return result, fmt.Errorf("marking post published: %w", err)
	}

	log.Info("publish attempt finished", "successful", successful, "requested", len(platforms))
	return result, nil
}

// publishTo runs one adapter and always yields an outcome for platform.
func (s *publishService) publishTo(
	ctx context.Context,
	log *slog.Logger,
	platform models.PlatformID,
	channel *models.Channel,
	post *models.Post,
	media []models.MediaRef) (outcome models.PublishOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("adapter panicked", "platform", platform, "panic", r)
			outcome = failedOutcome(platform, fmt.Sprintf("internal error: %v", r))
		}
	}()

	adapter, ok := s.adapters[platform]
	if !ok {
		return failedOutcome(platform, "platform is not configured")
	}

	creds, err := s.creds.Resolve(channel, platform)
	if err != nil {
		log.Warn("credentials unavailable", "platform", platform, "error", err)
		return failedOutcome(platform, err.Error())
	}

	out, err := adapter.Publish(ctx, &PublishRequest{
		Credentials: creds,
		Message:     post.Message,
		Media:       media,
		Options:     PublishOptions{FacebookVideoType: post.FacebookVideoType},
	})
	if err != nil {
		log.Warn("publish failed", "platform", platform, "error", err)
		return failedOutcome(platform, err.Error())
	}

	switch {
	case out == nil:
		log.Warn("adapter returned no outcome", "platform", platform)
		return malformedOutcome(platform, "adapter returned no outcome")
	case out.Platform != platform:
		log.Warn("adapter returned outcome for another platform", "platform", platform, "got", out.Platform)
		return malformedOutcome(platform, fmt.Sprintf("adapter returned outcome for %q", out.Platform))
	}
	return *out
}

func malformedOutcome(platform models.PlatformID, message string) models.PublishOutcome {
	o := failedOutcome(platform, message)
	o.Malformed = true
	return o
}

// validatePlatforms collapses duplicates keeping first-seen order and
// rejects empty or unknown platform lists.
func validatePlatforms(requested []models.PlatformID) ([]models.PlatformID, error) {
	platforms := lo.Uniq(requested)
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: no platforms requested", ErrInvalidPost)
	}
	if unknown := lo.Without(platforms, models.KnownPlatforms...); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown platforms %v", ErrInvalidPost, unknown)
	}
	return platforms, nil
}

// resolveMedia returns a copy of media with storage references rewritten.
func (s *publishService) resolveMedia(ctx context.Context, media []models.MediaRef) ([]models.MediaRef, error) {
	resolved := make([]models.MediaRef, len(media))
	copy(resolved, media)

	for i := range resolved {
		for _, u := range []*string{&resolved[i].URL, &resolved[i].ThumbnailURL} {
			if !strings.HasPrefix(*u, r2Scheme) {
				continue
			}
			if s.media == nil {
				return nil, fmt.Errorf("%w: media item %d uses object storage, which is not configured", ErrInvalidPost, i)
			}
			v, err := s.media.ResolveMediaURL(ctx, *u)
			if err != nil {
				return nil, err
			}
			*u = v
		}
	}
	return resolved, nil
}
