package media

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/store"
)

// S3Config holds what is needed to reach the bucket. Endpoint is set for
// S3-compatible stores such as LocalStack or MinIO.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
}

// ObjectAPI is the subset of *s3.Client the Uploader calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client loads the AWS config and builds a client. A custom endpoint
// switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	zap.L().Info("S3 configuration",
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Uploader stores product images in a bucket under <prefix><productID>/<uuid><ext>.
type Uploader struct {
	client   ObjectAPI
	bucket   string
	prefix   string
	endpoint string
	region   string
}

var _ store.ObjectStore = (*Uploader)(nil)

// NewUploader creates an Uploader.
func NewUploader(client ObjectAPI, cfg S3Config) *Uploader {
	return &Uploader{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		region:   cfg.Region,
	}
}

// Put uploads file and returns its object key and public URL.
func (u *Uploader) Put(ctx context.Context, productID int64, file domain.MediaFile) (string, string, error) {
	key := fmt.Sprintf("%s%d/%s%s", u.prefix, productID, uuid.NewString(), extension(file))

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Data),
		ContentLength: aws.Int64(int64(len(file.Data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("media: put object %s: %w", key, err)
	}
	zap.L().Debug("media object stored", zap.String("key", key), zap.Int("bytes", len(file.Data)))
	return key, u.URL(key), nil
}

// Remove deletes the object at key.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("media: delete object %s: %w", key, err)
	}
	return nil
}

// URL is the public address of key: path-style under a custom endpoint,
// virtual-hosted style on AWS.
func (u *Uploader) URL(key string) string {
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.endpoint, u.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}

// KeyFor returns the object key of a URL produced by URL.
func (u *Uploader) KeyFor(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, u.URL(""))
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func extension(f domain.MediaFile) string {
	if ext := strings.ToLower(path.Ext(f.Filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(f.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}
