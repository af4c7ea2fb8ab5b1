package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "tradescanner/config"
	"tradescanner/logger"
)

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores exports in a bucket.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	log    *logger.Log
}

// NewS3Uploader builds an uploader from the storage configuration. Static
// keys are used when configured; otherwise the default AWS credential chain
// applies.
func NewS3Uploader(ctx context.Context, cfg appconfig.S3Config, log *logger.Log) (*S3Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_uploader").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"bucket":     cfg.Bucket,
		"region":     cfg.Region,
		"endpoint":   cfg.Endpoint,
		"path_style": cfg.PathStyle,
	}).Info("s3 uploader initialized")

	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.Prefix, log), nil
}

// NewS3UploaderWithClient wraps an existing client.
func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string, log *logger.Log) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix, log: log}
}

// ObjectKey returns <prefix>/<yyyy>/<mm>/<dd>/<id>.<ext> for a snapshot taken
// at ts. An empty id gets a fresh UUID.
func (u *S3Uploader) ObjectKey(ts time.Time, id string, format Format) string {
	if id == "" {
		id = uuid.New().String()
	}
	ts = ts.UTC()
	return path.Join(u.prefix,
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", int(ts.Month())),
		fmt.Sprintf("%02d", ts.Day()),
		id+"."+format.Extension(),
	)
}

// Upload puts body under key and returns the s3:// URI.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	start := time.Now()
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	log := u.log.WithComponent("s3_uploader").WithFields(logger.Fields{"bucket": u.bucket, "s3_key": key})
	if err != nil {
		log.WithError(err).Error("upload failed")
		return "", fmt.Errorf("failed to upload to S3 bucket %s: %w", u.bucket, err)
	}

	logger.LogPerformanceEntry(log, "s3_uploader", "upload", time.Since(start), logger.Fields{"bytes": len(body)})
	log.LogMetric("s3_uploader", "bytes_uploaded", int64(len(body)), "counter", logger.Fields{"bucket": u.bucket})
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
