// Package minio implements blob.Store for MinIO and other S3-compatible
// storage.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/saturnino-fabrica-de-software/facefind/internal/blob"
)

// Config holds connection settings for NewClient.
type Config struct {
	Endpoint  string // host:port, without scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// NewClient creates a MinIO client with static V4 credentials.
func NewClient(cfg Config) (*minio.Client, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// Store implements blob.Store for MinIO.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO blob store.
// rootPrefix is prepended to all keys.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Get reads the whole object. GetObject is lazy, so a missing key surfaces
// on the first read.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(err, key)
	}
	return data, nil
}

// Put writes an object with a known size.
func (s *Store) Put(ctx context.Context, name string, data []byte, contentType string) error {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classify(err, key)
	}
	return nil
}

// List returns objects under prefix. MinIO lists keys in lexical order.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]blob.Object, error) {
	fullPrefix := s.key(prefix)
	if strings.HasSuffix(prefix, "/") && !strings.HasSuffix(fullPrefix, "/") {
		fullPrefix += "/"
	}

	// Cancelling stops the listing goroutine when we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []blob.Object
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, classify(obj.Err, fullPrefix)
		}
		name := obj.Key
		if s.prefix != "" {
			name = strings.TrimPrefix(strings.TrimPrefix(name, s.prefix), "/")
		}
		objects = append(objects, blob.Object{
			Key:          name,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
		if limit > 0 && len(objects) >= limit {
			break
		}
	}
	return objects, nil
}

func classify(err error, key string) error {
	errResp := minio.ToErrorResponse(err)
	switch errResp.Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", key, err)
}

var _ blob.Store = (*Store)(nil)
