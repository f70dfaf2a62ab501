// Package attachments stores submission files in R2 or any S3-compatible
// bucket.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/cvaas/quest-engine/internal/models"
)

// ErrEmptyFile is returned for zero-byte uploads
var ErrEmptyFile = errors.New("file is empty")

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds bucket connection settings
type Config struct {
	AccountID       string
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Uploader writes attachments and returns their public URL
type Uploader struct {
	client  ObjectPutter
	bucket  string
	baseURL string
}

// NewUploader builds an S3 client for R2 (or Endpoint, when set)
func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfg.Endpoint != ""
	})

	baseURL := cfg.CDNBaseURL
	if baseURL == "" {
		baseURL = strings.TrimSuffix(endpoint, "/") + "/" + cfg.Bucket
	}

	return NewUploaderWithClient(client, cfg.Bucket, baseURL), nil
}

// NewUploaderWithClient wraps an existing client
func NewUploaderWithClient(client ObjectPutter, bucket, baseURL string) *Uploader {
	return &Uploader{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload stores body under a key scoped to userID and returns a FileRef
// suitable for file submission content.
func (u *Uploader) Upload(ctx context.Context, userID, name, contentType string, size int64, body io.Reader) (*models.FileRef, error) {
	if size == 0 {
		return nil, ErrEmptyFile
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(userID, name, uuid.NewString())

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to R2: %w", err)
	}

	slog.Info("attachment uploaded", "user_id", userID, "key", key, "size", size)

	return &models.FileRef{
		Name:        name,
		URL:         u.baseURL + "/" + key,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// ObjectKey builds "submissions/{user}/{id}-{slug(name)}{.ext}"
func ObjectKey(userID, name, id string) string {
	ext := strings.ToLower(path.Ext(name))
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	if !slug.IsSlug(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return fmt.Sprintf("submissions/%s/%s-%s%s", slug.Make(userID), id, base, ext)
}
