package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// FrameStorage persists extracted frame stills and returns public URLs.
type FrameStorage interface {
	StoreFrame(ctx context.Context, videoID string, timestamp float64, jpeg []byte) (string, error)
}

type frameStorage struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

// NewFrameStorage creates a FrameStorage backed by an S3-compatible bucket.
func NewFrameStorage(s3Client *s3.Client, bucket, publicURL string, logger zerolog.Logger) FrameStorage {
	return &frameStorage{
		s3Client:  s3Client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With().Str("service", "FrameStorage").Logger(),
	}
}

// StoreFrame uploads one JPEG still keyed by video ID and timestamp. Repeat
// extractions of the same frame overwrite the same object.
func (s *frameStorage) StoreFrame(ctx context.Context, videoID string, timestamp float64, jpeg []byte) (string, error) {
	key := fmt.Sprintf("frames/%s/%.0f.jpg", videoID, timestamp)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(jpeg),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to upload frame")
		return "", fmt.Errorf("upload frame %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}
