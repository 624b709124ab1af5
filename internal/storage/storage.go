// Package storage keeps uploaded files in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type Object struct {
	Key  string
	Size int64
}

type Storage struct {
	cl     *minio.Client
	bucket string
}

// New connects to the bucket, creating it when missing
func New(ctx context.Context, cfg Config) (*Storage, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cl.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cl.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	return &Storage{cl: cl, bucket: cfg.Bucket}, nil
}

// Put uploads r under prefix. size may be -1 when unknown.
func (s *Storage) Put(ctx context.Context, prefix string, r io.Reader, size int64, name, mime string) (Object, error) {
	key := ObjectKey(prefix, name)
	info, err := s.cl.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, Size: info.Size}, nil
}

// PresignedURL returns a time limited download link
func (s *Storage) PresignedURL(ctx context.Context, key, downloadName string, ttl time.Duration) (string, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	u, err := s.cl.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// ObjectKey builds a unique key that keeps the original file name readable
func ObjectKey(prefix, name string) string {
	return path.Join(strings.Trim(prefix, "/"), uuid.NewString()+"-"+sanitize(name))
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	u := url.PathEscape(name)
	return strings.ReplaceAll(u, "%2F", "_")
}
