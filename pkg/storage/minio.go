package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store with the MinIO client, for self-hosted
// S3-compatible servers. Version tokens are ETags.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to endpoint (host:port) and makes sure bucket exists
func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put streams body to the bucket. IfMatch is sent as an If-Match header.
// IfNoneMatch is checked with a stat before the write, so two writers
// creating the same object at once can both succeed.
func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error) {
	putOpts := minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	}
	switch {
	case opts.IfMatch != "":
		putOpts.SetMatchETag(strings.Trim(opts.IfMatch, `"`))
	case opts.IfNoneMatch:
		_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
		if err == nil {
			return "", fmt.Errorf("put object %q: %w", key, ErrPreconditionFailed)
		}
		if translated := translateMinioError(err); !errors.Is(translated, ErrNotFound) {
			return "", fmt.Errorf("stat object %q: %w", key, translated)
		}
	}

	size := opts.Size
	if size <= 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, newProgressReader(body, opts.Size, opts.Progress), size, putOpts)
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, translateMinioError(err))
	}
	return info.ETag, nil
}

// Get downloads the object in full
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get object %q: %w", key, translateMinioError(err))
	}
	defer obj.Close()

	// GetObject is lazy; errors such as a missing key surface on the first stat or read
	stat, err := obj.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("get object %q: %w", key, translateMinioError(err))
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %w", key, translateMinioError(err))
	}
	return data, stat.ETag, nil
}

// List walks every object under prefix
func (s *MinioStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %q: %w", prefix, obj.Err)
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// SignedURL presigns a GET request
func (s *MinioStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return u.String(), nil
}

// Delete removes the object. Missing keys are not reported.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %q: %w", key, translateMinioError(err))
	}
	return nil
}

// Close is a no-op
func (s *MinioStore) Close() error {
	return nil
}

func translateMinioError(err error) error {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return err
	}
	switch {
	case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %v", ErrPreconditionFailed, err)
	}
	return err
}
