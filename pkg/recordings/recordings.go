// Package recordings resolves meeting recording URIs to local file paths
// the audio extractor can open. Recordings either already live on local
// disk or are fetched from S3-compatible object storage into a temp file.
package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrNotFound is returned when the recording does not exist.
var ErrNotFound = errors.New("recordings: not found")

// Source resolves a recording URI to a local path.
type Source interface {
	// Localize returns a local filesystem path holding the recording.
	// cleanup releases any temporary copy and must be called when the
	// caller is done with the path (it may be a no-op).
	Localize(ctx context.Context, uri string) (path string, cleanup func(), err error)
}

// Local serves recordings straight off the local filesystem.
// file:// URIs and bare paths are both accepted.
type Local struct{}

var _ Source = Local{}

// Localize checks the file exists and returns its path unchanged.
func (Local) Localize(_ context.Context, uri string) (string, func(), error) {
	path := strings.TrimPrefix(uri, "file://")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", nil, fmt.Errorf("recordings: stat %s: %w", path, err)
	}
	return path, func() {}, nil
}

// S3Client abstracts the S3 API operation used by [S3]. The [s3.Client]
// type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 fetches recordings from an S3-compatible object store (AWS, MinIO,
// R2, ...). The caller configures the client with credentials, region, and
// endpoint.
type S3 struct {
	client S3Client
}

// NewS3 creates an S3-backed Source.
func NewS3(client S3Client) *S3 {
	return &S3{client: client}
}

var _ Source = (*S3)(nil)

// Localize downloads s3://bucket/key into a temp file and returns its path.
// cleanup removes the temp file.
func (s *S3) Localize(ctx context.Context, uri string) (string, func(), error) {
	bucket, key, err := splitURI(uri)
	if err != nil {
		return "", nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return "", nil, fmt.Errorf("recordings: get %s: %w", uri, err)
	}
	defer out.Body.Close()

	// Keep the original extension so the extractor can pick its decode
	// path by filename.
	tmp, err := os.CreateTemp("", "recording-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("recordings: create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("recordings: download %s: %w", uri, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("recordings: flush temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

// splitURI parses s3://bucket/key/with/slashes.
func splitURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("recordings: not an s3 URI: %s", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("recordings: malformed s3 URI: %s", uri)
	}
	return bucket, key, nil
}

// isS3NotFound reports whether err indicates the object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// ForURI picks the Source matching the URI scheme: S3 for s3:// when an S3
// source is available, Local otherwise.
func ForURI(uri string, s3src *S3) Source {
	if strings.HasPrefix(uri, "s3://") && s3src != nil {
		return s3src
	}
	return Local{}
}
