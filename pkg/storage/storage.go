// Package storage talks to the S3 compatible object store that holds avatars.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// ErrNotConfigured is returned by NewClient when no endpoint is set.
var ErrNotConfigured = errors.New("object storage not configured")

// ObjectStore is the subset of bucket operations the services need.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Client implements ObjectStore on a single minio bucket.
type Client struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logg    *logger.Logger
}

// NewClient connects to the configured endpoint and ensures the bucket exists.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if cfg.AvatarBucket == "" {
		return nil, errors.New("avatar bucket name is required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	exists, err := mc.BucketExists(checkCtx, cfg.AvatarBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(checkCtx, cfg.AvatarBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.AvatarBucket)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.AvatarBucket), "object storage ready")
	}
	return &Client{client: mc, bucket: cfg.AvatarBucket, baseURL: baseURL, logg: logg}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Put uploads an object, replacing any object at key.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Delete removes an object. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicURL is the unauthenticated read URL of key.
func (c *Client) PublicURL(key string) string {
	return PublicURL(c.baseURL, key)
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.client.BucketExists(ctx, c.bucket); err != nil {
		return fmt.Errorf("ping object storage: %w", err)
	}
	return nil
}

// PublicURL joins baseURL and an escaped object key.
func PublicURL(baseURL, key string) string {
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(segments, "/")
}
