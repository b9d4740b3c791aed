package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	appconfig "chemshop-be/internal/config"
	"chemshop-be/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploader stores customer receipt images and other order attachments.
type Uploader interface {
	UploadPublicFile(ctx context.Context, prefix, filename string, body io.Reader, contentType string) (url, key string, err error)
	UploadPrivateFile(ctx context.Context, prefix, filename string, body io.Reader, contentType string) (key string, err error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type s3Uploader struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

// NewS3Uploader builds the object-storage client. A custom endpoint switches
// it to an S3-compatible store (MinIO in development).
func NewS3Uploader(ctx context.Context, cfg *appconfig.Config) (Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.L().Info("object storage ready",
		zap.String("bucket", cfg.S3Bucket),
		zap.String("region", cfg.S3Region),
	)

	return &s3Uploader{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.S3Bucket,
		publicURL: strings.TrimRight(cfg.S3PublicURL, "/"),
	}, nil
}

func objectKey(prefix, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("%s/%s/%s%s",
		strings.Trim(prefix, "/"),
		time.Now().UTC().Format("2006/01"),
		uuid.NewString(), ext)
}

func (u *s3Uploader) UploadPublicFile(ctx context.Context, prefix, filename string, body io.Reader, contentType string) (string, string, error) {
	key := objectKey(prefix, filename)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return u.publicURL + "/" + key, key, nil
}

func (u *s3Uploader) UploadPrivateFile(ctx context.Context, prefix, filename string, body io.Reader, contentType string) (string, error) {
	key := objectKey(prefix, filename)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return key, nil
}

func (u *s3Uploader) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	req, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
