// Package storage archives WhatsApp media in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	infraconfig "github.com/petshop/erp/internal/infrastructure/config"
	"go.uber.org/zap"
)

// S3MediaStore stores media objects in an S3-compatible bucket (AWS S3, MinIO, etc.)
type S3MediaStore struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3MediaStoreOption is a functional option for configuring S3MediaStore
type S3MediaStoreOption func(*S3MediaStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3MediaStoreOption {
	return func(s *S3MediaStore) {
		s.logger = logger
	}
}

// WithPresignExpiration sets the default lifetime of download URLs
func WithPresignExpiration(d time.Duration) S3MediaStoreOption {
	return func(s *S3MediaStore) {
		s.presignExpiration = d
	}
}

// NewS3MediaStore creates a store from configuration. Without static keys the
// default AWS credential chain is used.
func NewS3MediaStore(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3MediaStoreOption) (*S3MediaStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key id and secret must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3MediaStore{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		prefix:            strings.Trim(cfg.Prefix, "/"),
		presignExpiration: 15 * time.Minute,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Bucket returns the configured bucket name
func (s *S3MediaStore) Bucket() string {
	return s.bucket
}

// MediaKey builds the object key of a media file: <prefix>/<tenant>/<media id><ext>
func (s *S3MediaStore) MediaKey(tenantID uuid.UUID, mediaID, mimeType string) string {
	return MediaKey(s.prefix, tenantID, mediaID, mimeType)
}

// MediaKey builds an object key below prefix. The extension is derived from the MIME type.
func MediaKey(prefix string, tenantID uuid.UUID, mediaID, mimeType string) string {
	name := sanitizeKeyPart(mediaID) + ExtensionFor(mimeType)
	if prefix == "" {
		return path.Join(tenantID.String(), name)
	}
	return path.Join(prefix, tenantID.String(), name)
}

func sanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"audio/ogg":       ".ogg",
	"audio/mpeg":      ".mp3",
	"audio/mp4":       ".m4a",
	"video/mp4":       ".mp4",
	"application/pdf": ".pdf",
}

// ExtensionFor maps a MIME type to a file extension; unknown types get none
func ExtensionFor(mimeType string) string {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	return extensions[strings.ToLower(base)]
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3MediaStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating media bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put uploads a media object
func (s *S3MediaStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	s.logger.Debug("media stored",
		zap.String("key", key),
		zap.Int("size", len(data)),
		zap.String("content_type", contentType),
	)
	return nil
}

// Get downloads a media object
func (s *S3MediaStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", errors.New("storage key is required")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, aws.ToString(out.ContentType), nil
}

// PresignGet returns a time-limited download URL for a media object
func (s *S3MediaStore) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign download URL: %w", err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// Exists reports whether an object is present
func (s *S3MediaStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Delete removes a media object
func (s *S3MediaStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
