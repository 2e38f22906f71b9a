// Package media stores user uploaded images in Google Cloud Storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// ErrUnsupportedType is returned for content that is not an accepted image type.
var ErrUnsupportedType = errors.New("unsupported image type")

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Allowed reports whether contentType may be uploaded.
func Allowed(contentType string) bool {
	mediaType, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	return allowedTypes[strings.TrimSpace(mediaType)]
}

// ObjectURL is the public reference of an object in bucket.
func ObjectURL(bucket, key string) string {
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + bucket + "/" + key}
	return u.String()
}

// GCS uses Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

// Put uploads r under key and returns the object's URL.
func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if !Allowed(contentType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy to GCS writer: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return ObjectURL(g.bucket, key), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
