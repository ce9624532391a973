package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Store implements Store on an S3 bucket. Version tokens are ETags.
// A custom endpoint selects an S3-compatible provider such as MinIO.
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
}

// NewS3Store loads the default AWS credential chain for region and returns a
// store for bucket
func NewS3Store(ctx context.Context, region, bucket, endpoint string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}, nil
}

// Put uploads body. Conditional writes go through a single PutObject call;
// unconditional ones use the multipart uploader so large videos stream.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error) {
	var meta map[string]string
	if len(opts.Metadata) > 0 {
		meta = opts.Metadata
	}
	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Metadata: meta,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if opts.IfMatch != "" || opts.IfNoneMatch {
		data, err := io.ReadAll(newProgressReader(body, opts.Size, opts.Progress))
		if err != nil {
			return "", fmt.Errorf("read body for %q: %w", key, err)
		}
		input.Body = bytes.NewReader(data)
		input.ContentLength = aws.Int64(int64(len(data)))
		if opts.IfMatch != "" {
			input.IfMatch = aws.String(opts.IfMatch)
		} else {
			input.IfNoneMatch = aws.String("*")
		}
		out, err := s.client.PutObject(ctx, input)
		if err != nil {
			return "", fmt.Errorf("put object %q: %w", key, translateS3Error(err))
		}
		return aws.ToString(out.ETag), nil
	}

	input.Body = newProgressReader(body, opts.Size, opts.Progress)
	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, translateS3Error(err))
	}
	return aws.ToString(out.ETag), nil
}

// Get downloads the object in full
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get object %q: %w", key, translateS3Error(err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %w", key, err)
	}
	return data, aws.ToString(out.ETag), nil
}

// List pages through every object under prefix
func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var out []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %q: %w", prefix, translateS3Error(err))
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

// SignedURL presigns a GetObject request
func (s *S3Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes the object. S3 reports success for keys that do not exist.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, translateS3Error(err))
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (s *S3Store) Close() error {
	return nil
}

func translateS3Error(err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("%w: %v", ErrPreconditionFailed, err)
		}
	}
	return err
}
