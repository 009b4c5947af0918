// Package storage archives handover statements to object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	infraconfig "github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// StatementContentType is the media type of archived statements
const StatementContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrArchiveUnavailable is returned while the upload breaker is open
var ErrArchiveUnavailable = errors.New("statement archive unavailable")

// Ensure S3StatementStore implements StatementStore
var _ cashapp.StatementStore = (*S3StatementStore)(nil)

// objectAPI is the subset of the S3 client the store uses
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3StatementStore keeps handover statements in an S3-compatible bucket
// (AWS S3, MinIO, RustFS). Uploads run behind a circuit breaker so a
// failing bucket makes the outbox back off instead of hammering it.
type S3StatementStore struct {
	client            objectAPI
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	breaker           *gobreaker.CircuitBreaker
	logger            *zap.Logger
}

// S3StatementStoreOption is a functional option for configuring S3StatementStore
type S3StatementStoreOption func(*S3StatementStore)

// WithLogger sets a custom logger for S3StatementStore
func WithLogger(logger *zap.Logger) S3StatementStoreOption {
	return func(s *S3StatementStore) {
		s.logger = logger
	}
}

// WithPresignExpiration sets a custom presign expiration duration
func WithPresignExpiration(d time.Duration) S3StatementStoreOption {
	return func(s *S3StatementStore) {
		s.presignExpiration = d
	}
}

// NewS3StatementStore creates a new S3StatementStore from configuration.
func NewS3StatementStore(cfg *infraconfig.StorageConfig, opts ...S3StatementStoreOption) (*S3StatementStore, error) {
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

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := newStatementStore(client, cfg, opts...)
	store.presignClient = s3.NewPresignClient(client)
	return store, nil
}

func newStatementStore(client objectAPI, cfg *infraconfig.StorageConfig, opts ...S3StatementStoreOption) *S3StatementStore {
	store := &S3StatementStore{
		client:            client,
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignExpiration == 0 {
		store.presignExpiration = 15 * time.Minute
	}
	store.breaker = newUploadBreaker(cfg, store.logger)
	return store
}

// normalizeEndpoint returns "" for AWS, otherwise an absolute URL
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

func newUploadBreaker(cfg *infraconfig.StorageConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := cfg.BreakerOpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "statement-archive",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Statement archive breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3StatementStore) EnsureBucket(ctx context.Context) error {
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

	s.logger.Info("Creating statement bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// lost the race to another instance
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PutStatement uploads a rendered statement. Keys are deterministic per
// handover, so a redelivered event overwrites the same object.
func (s *S3StatementStore) PutStatement(ctx context.Context, key string, content []byte) error {
	if key == "" {
		return errors.New("statement key is required")
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(content),
			ContentLength: aws.Int64(int64(len(content))),
			ContentType:   aws.String(StatementContentType),
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("failed to upload statement %s: %w", key, err)
	}

	s.logger.Debug("Statement archived", zap.String("key", key), zap.Int("bytes", len(content)))
	return nil
}

// StatementExists checks whether a statement has been archived.
func (s *S3StatementStore) StatementExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("statement key is required")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check statement existence: %w", err)
	}
	return true, nil
}

// StatementURL returns a presigned download URL for an archived statement.
func (s *S3StatementStore) StatementURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("statement key is required")
	}
	if s.presignClient == nil {
		return "", time.Time{}, errors.New("presigning is not configured")
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate statement URL: %w", err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// BreakerState reports the upload breaker state for health checks
func (s *S3StatementStore) BreakerState() string {
	return s.breaker.State().String()
}

// GetBucket returns the bucket name
func (s *S3StatementStore) GetBucket() string {
	return s.bucket
}
