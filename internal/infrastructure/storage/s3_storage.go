package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/nucleon/receipts/internal/domain/receipt"
	infraconfig "github.com/nucleon/receipts/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultS3Prefix           = "receipts"
	defaultPresignExpiration  = 7 * 24 * time.Hour
	maxPresignExpiration      = 7 * 24 * time.Hour
	receiptContentType        = "application/pdf"
	receiptContentDisposition = "inline"
)

// S3Storage stores receipts in an S3-compatible bucket (AWS S3, MinIO,
// RustFS) and returns a presigned download URL as the shareable link.
type S3Storage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3Option is a functional option for configuring S3Storage
type S3Option func(*S3Storage)

// WithS3Logger sets a custom logger for S3Storage
func WithS3Logger(logger *zap.Logger) S3Option {
	return func(s *S3Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPresignExpiration sets how long shared links stay valid
func WithPresignExpiration(d time.Duration) S3Option {
	return func(s *S3Storage) {
		s.presignExpiration = d
	}
}

// NewS3Storage creates a new S3Storage from configuration.
func NewS3Storage(cfg *infraconfig.S3StorageConfig, opts ...S3Option) (*S3Storage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	prefix := strings.Trim(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		prefix = defaultS3Prefix
	}

	storage := &S3Storage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		prefix:            prefix,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(storage)
	}

	if storage.presignExpiration <= 0 {
		storage.presignExpiration = defaultPresignExpiration
	}
	if storage.presignExpiration > maxPresignExpiration {
		return nil, fmt.Errorf("presign expiration %s exceeds the 7 day limit", storage.presignExpiration)
	}

	return storage, nil
}

// Name implements receipt.StorageBackend
func (s *S3Storage) Name() string { return "s3" }

// Bucket returns the bucket name
func (s *S3Storage) Bucket() string { return s.bucket }

// ObjectKey returns the key rec is stored under
func (s *S3Storage) ObjectKey(rec *receipt.Record) string {
	if s.prefix == "" {
		return ObjectPath(rec)
	}
	return path.Join(s.prefix, ObjectPath(rec))
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
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

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
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

// Persist implements receipt.StorageBackend. PutObject overwrites an
// existing object under the same key.
func (s *S3Storage) Persist(ctx context.Context, doc receipt.Document, rec *receipt.Record) receipt.StorageResult {
	if rec == nil {
		return uploadFailed(errors.New("record is nil"))
	}
	if doc.IsEmpty() {
		return uploadFailed(errors.New("document is empty"))
	}

	key := s.ObjectKey(rec)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(doc.Bytes()),
		ContentLength:      aws.Int64(int64(doc.Len())),
		ContentType:        aws.String(receiptContentType),
		ContentDisposition: aws.String(receiptContentDisposition),
		Metadata: map[string]string{
			"receipt-number": rec.Number,
		},
	})
	if err != nil {
		return uploadFailed(fmt.Errorf("failed to upload object %s: %w", key, err))
	}

	link, err := s.downloadURL(ctx, key)
	if err != nil {
		return uploadFailed(err)
	}

	s.logger.Info("receipt uploaded",
		zap.String("receipt_number", rec.Number),
		zap.String("bucket", s.bucket),
		zap.String("key", key),
	)
	return receipt.StoredWithLink(key, link)
}

func (s *S3Storage) downloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, nil
}

var _ receipt.StorageBackend = (*S3Storage)(nil)
