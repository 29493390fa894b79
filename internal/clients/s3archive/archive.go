// Package s3archive uploads serialized results to S3-compatible storage.
package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Config holds archive settings. Endpoint and static keys are optional and
// target S3-compatible stores; without them the default AWS chain is used.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader is the subset of manager.Uploader the archive uses
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archive implements domain.ResultArchive
type Archive struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// New builds an archive from the AWS default config chain
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Archive, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// NewWithUploader wraps an existing uploader
func NewWithUploader(uploader Uploader, bucket, prefix string, log zerolog.Logger) *Archive {
	return &Archive{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("component", "s3_archive").Logger(),
	}
}

// Key returns the object key for a result
func (a *Archive) Key(kind, id string) string {
	return path.Join(a.prefix, kind, id+".json")
}

// Archive uploads payload as JSON and returns its location
func (a *Archive) Archive(ctx context.Context, kind, id string, payload []byte) (string, error) {
	key := a.Key(kind, id)
	start := time.Now()

	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	location := out.Location
	if location == "" {
		location = fmt.Sprintf("s3://%s/%s", a.bucket, key)
	}

	a.log.Debug().
		Str("key", key).
		Int("bytes", len(payload)).
		Dur("duration", time.Since(start)).
		Msg("Archived result")
	return location, nil
}
