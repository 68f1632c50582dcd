package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"github.com/psysupport/psysupport-api/pkg/retry"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://storage.yandexcloud.net"
	defaultRegion   = "ru-central1"
)

// putter is the slice of the S3 API the archive needs
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config for an S3-compatible bucket
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
}

// Client writes objects to an S3-compatible bucket
type Client struct {
	s3         putter
	bucketName string
	retryCfg   retry.Config
}

// NewClient creates an S3 client with static credentials
func NewClient(cfg Config) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	})

	logger.Info("Object storage client initialized",
		zap.String("bucket", cfg.BucketName),
		zap.String("endpoint", endpoint),
		zap.String("region", region),
	)

	return newClient(s3Client, cfg.BucketName), nil
}

func newClient(p putter, bucket string) *Client {
	return &Client{s3: p, bucketName: bucket, retryCfg: retry.StorageConfig()}
}

// PutJSON uploads a JSON document, retrying transient failures
func (c *Client) PutJSON(ctx context.Context, key string, body []byte) error {
	start := time.Now()
	operation := "putJSON"
	key = strings.TrimPrefix(key, "/")

	err := retry.Do(ctx, c.retryCfg, "objectstore."+operation, func() error {
		_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		return err
	})

	duration := metrics.MeasureDuration(start)
	status := metrics.StatusLabel(err)
	metrics.StorageRequestDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.StorageRequestTotal.WithLabelValues(operation, status).Inc()

	if err != nil {
		logger.LogAPICall("object_storage", operation, status, duration, zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.LogAPICall("object_storage", operation, status, duration,
		zap.String("key", key),
		zap.Int("size_bytes", len(body)),
	)
	return nil
}
