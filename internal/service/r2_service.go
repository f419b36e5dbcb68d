package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/postflow/configs"
)

const r2Scheme = "r2://"

// R2Service turns r2://<key> media references into presigned GET URLs on
// Cloudflare R2.
type R2Service struct {
	bucket  string
	ttl     time.Duration
	presign *s3.PresignClient
}

func NewR2Service(ctx context.Context, c cfg.Config) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.R2.AccessKey, c.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("loading r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID))
		o.UsePathStyle = true
	})

	return &R2Service{
		bucket:  c.R2.BucketName,
		ttl:     c.R2.PresignTTL,
		presign: s3.NewPresignClient(client),
	}, nil
}

// ResolveMediaURL presigns r2:// references and returns any other URL
// unchanged.
func (r *R2Service) ResolveMediaURL(ctx context.Context, raw string) (string, error) {
	if !strings.HasPrefix(raw, r2Scheme) {
		return raw, nil
	}

	key := strings.TrimPrefix(raw, r2Scheme)
	if key == "" {
		return "", fmt.Errorf("%w: empty r2 object key", ErrInvalidPost)
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return req.URL, nil
}
