package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore implements Store on a Google Cloud Storage bucket. Version tokens
// are object generations.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSStore creates a storage client for bucketName. credentialsFile is
// optional; application default credentials are used when it is empty.
func NewGCSStore(ctx context.Context, bucketName, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucketName),
	}, nil
}

// Put uploads body, honouring generation preconditions
func (g *GCSStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error) {
	key = strings.TrimPrefix(key, "/")

	obj := g.bucket.Object(key)
	switch {
	case opts.IfNoneMatch:
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	case opts.IfMatch != "":
		generation, err := strconv.ParseInt(opts.IfMatch, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid generation %q: %w", opts.IfMatch, err)
		}
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}

	writer := obj.NewWriter(ctx)
	writer.ContentType = opts.ContentType
	writer.Metadata = opts.Metadata
	if opts.Progress != nil {
		total := opts.Size
		writer.ProgressFunc = func(sent int64) {
			opts.Progress(sent, total)
		}
	}

	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("Writer.Write(%q): %w", key, translateGCSError(err))
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close(%q): %w", key, translateGCSError(err))
	}
	return strconv.FormatInt(writer.Attrs().Generation, 10), nil
}

// Get downloads the object in full
func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	reader, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("Object(%q).NewReader: %w", key, translateGCSError(err))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %w", key, err)
	}
	return data, strconv.FormatInt(reader.Attrs.Generation, 10), nil
}

// List iterates all objects under prefix
func (g *GCSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating objects: %w", err)
		}
		out = append(out, ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			ContentType:  attrs.ContentType,
			LastModified: attrs.Updated,
		})
	}
	return out, nil
}

// SignedURL creates a V4 signed GET URL
func (g *GCSStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	signedURL, err := g.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("error creating signed URL for %s: %w", key, err)
	}
	return signedURL, nil
}

// Delete removes the object
func (g *GCSStore) Delete(ctx context.Context, key string) error {
	if err := g.bucket.Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, translateGCSError(err))
	}
	return nil
}

// Close closes the storage client
func (g *GCSStore) Close() error {
	return g.client.Close()
}

func translateGCSError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %v", ErrPreconditionFailed, err)
		}
	}
	return err
}
