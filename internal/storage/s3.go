package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/pkg/config"
	"github.com/lgulliver/blogshelf/pkg/types"
	"github.com/lgulliver/blogshelf/pkg/utils"
)

// objectAPI is the subset of the S3 client the store uses
type objectAPI interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	HeadObjectWithContext(ctx aws.Context, input *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error)
}

// S3Storage implements AssetStore on an S3 bucket. The object key is the
// asset id; the locator is the public URL of the object.
type S3Storage struct {
	client  objectAPI
	bucket  string
	prefix  string
	baseURL string
	now     func() time.Time
	newID   func() string
}

// NewS3Storage creates an S3-backed store
func NewS3Storage(cfg *config.S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: S3 bucket name is required", types.ErrStoreUnavailable)
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create AWS session: %v", types.ErrStoreUnavailable, err)
	}

	log.Info().Str("bucket", cfg.Bucket).Str("region", cfg.Region).Msg("s3 storage initialized")
	return newS3Storage(s3.New(sess), cfg), nil
}

func newS3Storage(client objectAPI, cfg *config.S3Config) *S3Storage {
	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: s3BaseURL(cfg),
		now:     time.Now,
		newID:   randomSuffix,
	}
}

func s3BaseURL(cfg *config.S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Store puts content under <prefix>/<unixMillis>_<name>
func (ss *S3Storage) Store(ctx context.Context, content []byte, meta AssetMeta) (*StoredAsset, error) {
	startTime := time.Now()

	meta, err := ValidateAsset(content, meta)
	if err != nil {
		return nil, err
	}

	key := path.Join(ss.prefix, objectName(ss.now(), ss.newID(), utils.SanitizeFilename(meta.Filename)))

	_, err = ss.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(ss.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(meta.ContentType),
		ContentLength: aws.Int64(meta.Size),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", ss.bucket).Str("key", key).Msg("failed to upload image")
		return nil, fmt.Errorf("%w: failed to upload image: %v", types.ErrStoreUnavailable, err)
	}

	asset := &StoredAsset{
		Locator:     ss.baseURL + "/" + key,
		AssetID:     key,
		ContentType: meta.ContentType,
		Size:        meta.Size,
	}

	log.Info().
		Str("bucket", ss.bucket).
		Str("key", key).
		Int64("bytes_written", meta.Size).
		Dur("duration", time.Since(startTime)).
		Msg("image uploaded to s3")

	return asset, nil
}

// Remove deletes an object by key or public URL. S3 deletes are idempotent.
func (ss *S3Storage) Remove(ctx context.Context, ref string) error {
	key := ss.key(ref)
	if key == "" {
		return nil
	}

	_, err := ss.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			log.Debug().Str("key", key).Msg("image already deleted or does not exist")
			return nil
		}
		log.Error().Err(err).Str("bucket", ss.bucket).Str("key", key).Msg("failed to delete image")
		return fmt.Errorf("%w: failed to delete image: %v", types.ErrStoreUnavailable, err)
	}

	log.Info().Str("bucket", ss.bucket).Str("key", key).Msg("image deleted from s3")
	return nil
}

// Exists checks whether an object is present
func (ss *S3Storage) Exists(ctx context.Context, ref string) (bool, error) {
	key := ss.key(ref)
	if key == "" {
		return false, nil
	}

	_, err := ss.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to check object: %v", types.ErrStoreUnavailable, err)
	}
	return true, nil
}

func (ss *S3Storage) key(ref string) string {
	return strings.TrimPrefix(strings.TrimPrefix(ref, ss.baseURL), "/")
}

func isS3NotFound(err error) bool {
	if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
