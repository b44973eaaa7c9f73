// Package s3 implements blob.Store on Amazon S3.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/saturnino-fabrica-de-software/facefind/internal/blob"
)

const (
	errCodeNoSuchKey    = "NoSuchKey"
	errCodeNotFound     = "NotFound"
	errCodeAccessDenied = "AccessDenied"
	errCodeNoSuchBucket = "NoSuchBucket"
)

// ErrAccessDenied is returned when the credentials cannot read or write the bucket.
var ErrAccessDenied = errors.New("s3 access denied")

// Client is the subset of the S3 API used by Store.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
	manager.UploadAPIClient
}

// Config holds connection settings for NewClient.
type Config struct {
	Region    string
	Endpoint  string // optional, for S3-compatible services
	AccessKey string // optional, falls back to the default credential chain
	SecretKey string
}

// NewClient loads AWS configuration using the default credential chain
// unless static keys are given.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Store implements blob.Store for S3.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewStore creates a new S3 blob store.
// rootPrefix is prepended to all keys (e.g. "prod/").
func NewStore(client Client, bucket, rootPrefix string) *Store {
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   rootPrefix,
	}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Get downloads the whole object.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(err, key)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// Put uploads data, replacing the object.
func (s *Store) Put(ctx context.Context, name string, data []byte, contentType string) error {
	key := s.key(name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return classify(err, key)
	}
	return nil
}

// List walks ListObjectsV2 pages until limit objects are collected.
// S3 returns keys in ascending UTF-8 order.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]blob.Object, error) {
	fullPrefix := s.key(prefix)
	if strings.HasSuffix(prefix, "/") && !strings.HasSuffix(fullPrefix, "/") {
		fullPrefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	}
	if limit > 0 && limit < 1000 {
		input.MaxKeys = aws.Int32(int32(limit))
	}

	var objects []blob.Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, fullPrefix)
		}
		for _, obj := range page.Contents {
			name := aws.ToString(obj.Key)
			if s.prefix != "" {
				name = strings.TrimPrefix(strings.TrimPrefix(name, s.prefix), "/")
			}
			objects = append(objects, blob.Object{
				Key:          name,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
			if limit > 0 && len(objects) >= limit {
				return objects, nil
			}
		}
	}
	return objects, nil
}

func classify(err error, key string) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeNoSuchKey, errCodeNotFound:
			return fmt.Errorf("%s: %w", key, blob.ErrNotFound)
		case errCodeAccessDenied:
			return fmt.Errorf("%s: %w: %v", key, ErrAccessDenied, err)
		case errCodeNoSuchBucket:
			return fmt.Errorf("%s: bucket does not exist: %w", key, err)
		}
	}
	return fmt.Errorf("%s: %w", key, err)
}

var _ blob.Store = (*Store)(nil)
