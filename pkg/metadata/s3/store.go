// Package s3 implements a metadata store that keeps file attributes as S3
// object user metadata.
//
// Key layout mirrors the share tree: "<prefix><share>/<path>", directories
// carry a trailing "/". Attributes live in the x-amz-meta-wormfs-* headers so
// the bucket stays inspectable with any S3 tool.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/wormfs/pkg/metadata"
)

// User metadata keys. S3 lowercases them on the way back.
const (
	metaMode  = "wormfs-mode"
	metaUID   = "wormfs-uid"
	metaGID   = "wormfs-gid"
	metaCtime = "wormfs-ctime"
	metaMtime = "wormfs-mtime"
)

// Client is the subset of the S3 API used by the store. *s3.Client
// satisfies it.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3MetadataStore implements metadata.Store using object user metadata.
//
// Thread Safety:
// Safe for concurrent use. Creates are exclusive through If-None-Match;
// attribute updates are last-writer-wins, as with any S3 metadata rewrite.
type S3MetadataStore struct {
	client    Client
	bucket    string
	keyPrefix string
}

// S3MetadataStoreConfig contains configuration for the S3 metadata store.
type S3MetadataStoreConfig struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string
}

// NewS3MetadataStore verifies bucket access and returns a store. The bucket
// must already exist.
func NewS3MetadataStore(ctx context.Context, cfg S3MetadataStoreConfig) (*S3MetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3MetadataStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3MetadataStore) objectKey(share, p string) string {
	key := strings.TrimPrefix(path.Join(metadata.CleanPath(share), metadata.CleanPath(p)), "/")
	return s.keyPrefix + key
}

// head looks the path up as a file, then as a directory marker.
func (s *S3MetadataStore) head(ctx context.Context, share, p string) (string, *s3.HeadObjectOutput, error) {
	key := s.objectKey(share, p)
	for _, candidate := range []string{key, key + "/"} {
		out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(candidate),
		})
		if err == nil {
			return candidate, out, nil
		}
		if !isNotFound(err) {
			return "", nil, translateError(err, p)
		}
	}
	return "", nil, metadata.NewNotFoundError(metadata.CleanPath(p))
}

// GetAttr heads the object for path, trying the file key then the
// directory key, and decodes its user metadata.
func (s *S3MetadataStore) GetAttr(ctx context.Context, share, p string) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return nil, err
	}

	key, out, err := s.head(ctx, share, p)
	if err != nil {
		return nil, err
	}
	return attrFromObject(key, out), nil
}

// CreateFile writes an empty object carrying attr as user metadata.
//
// The put is conditional on If-None-Match: *, so a concurrent create of the
// same key loses with AlreadyExists. Size is always zero on creation.
func (s *S3MetadataStore) CreateFile(ctx context.Context, share, p string, attr *metadata.FileAttr) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return nil, err
	}
	if attr == nil {
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "attributes are required", Path: p}
	}

	if _, _, err := s.head(ctx, share, p); err == nil {
		return nil, metadata.NewAlreadyExistsError(metadata.CleanPath(p))
	} else if !metadata.IsNotFound(err) {
		return nil, err
	}

	created := attr.Clone()
	created.FillTimestamps(time.Now())
	created.Size = 0

	key := s.objectKey(share, p)
	if created.Type == metadata.FileTypeDirectory {
		key += "/"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(nil),
		IfNoneMatch: aws.String("*"),
		Metadata:    encodeMetadata(created),
	})
	if err != nil {
		return nil, translateError(err, p)
	}

	return created, nil
}

// SetAttr rewrites the object's user metadata.
//
// Metadata-only changes use a self-copy with the REPLACE directive. A
// truncate to zero rewrites the object; other sizes are not supported.
//
// Parameters:
//   - share: Share the file belongs to
//   - p: Share-relative path
//   - attrs: Fields to change; nil fields are left alone
func (s *S3MetadataStore) SetAttr(ctx context.Context, share, p string, attrs *metadata.SetAttrs) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return nil, err
	}

	key, out, err := s.head(ctx, share, p)
	if err != nil {
		return nil, err
	}
	attr := attrFromObject(key, out)
	if attrs.IsEmpty() {
		return attr, nil
	}

	truncate := attrs.Size != nil && *attrs.Size != attr.Size
	if truncate && *attrs.Size != 0 {
		return nil, &metadata.StoreError{
			Code:    metadata.ErrNotSupported,
			Message: "objects can only be truncated to zero",
			Path:    metadata.CleanPath(p),
		}
	}

	attrs.Apply(attr, time.Now())

	if truncate {
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			Body:     bytes.NewReader(nil),
			Metadata: encodeMetadata(attr),
		})
	} else {
		_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:            aws.String(s.bucket),
			Key:               aws.String(key),
			CopySource:        aws.String(copySource(s.bucket, key)),
			MetadataDirective: types.MetadataDirectiveReplace,
			Metadata:          encodeMetadata(attr),
		})
	}
	if err != nil {
		return nil, translateError(err, p)
	}

	return attr, nil
}

// Remove deletes the object backing path.
func (s *S3MetadataStore) Remove(ctx context.Context, share, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return err
	}

	key, _, err := s.head(ctx, share, p)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return translateError(err, p)
	}
	return nil
}

// Healthcheck verifies the bucket is still reachable.
func (s *S3MetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func (s *S3MetadataStore) Close() error {
	return nil
}

// copySource escapes "bucket/key" for x-amz-copy-source, keeping slashes.
func copySource(bucket, key string) string {
	return (&url.URL{Path: bucket + "/" + key}).EscapedPath()
}

func encodeMetadata(attr *metadata.FileAttr) map[string]string {
	return map[string]string{
		metaMode:  strconv.FormatUint(uint64(attr.Mode), 8),
		metaUID:   strconv.FormatUint(uint64(attr.UID), 10),
		metaGID:   strconv.FormatUint(uint64(attr.GID), 10),
		metaCtime: attr.Ctime.UTC().Format(time.RFC3339Nano),
		metaMtime: attr.Mtime.UTC().Format(time.RFC3339Nano),
	}
}

// attrFromObject decodes attributes from a HEAD response. Objects written by
// other tools have no wormfs metadata; they fall back to LastModified and
// mode 0644.
func attrFromObject(key string, out *s3.HeadObjectOutput) *metadata.FileAttr {
	modified := aws.ToTime(out.LastModified)
	attr := &metadata.FileAttr{
		Type:  metadata.FileTypeRegular,
		Mode:  0644,
		Size:  uint64(aws.ToInt64(out.ContentLength)),
		Atime: modified,
		Mtime: modified,
		Ctime: modified,
	}
	if strings.HasSuffix(key, "/") {
		attr.Type = metadata.FileTypeDirectory
		attr.Mode = 0755
		attr.Size = 0
	}

	meta := out.Metadata
	if v, err := strconv.ParseUint(meta[metaMode], 8, 32); err == nil {
		attr.Mode = uint32(v)
	}
	if v, err := strconv.ParseUint(meta[metaUID], 10, 32); err == nil {
		attr.UID = uint32(v)
	}
	if v, err := strconv.ParseUint(meta[metaGID], 10, 32); err == nil {
		attr.GID = uint32(v)
	}
	if t, err := time.Parse(time.RFC3339Nano, meta[metaCtime]); err == nil {
		attr.Ctime = t
	}
	if t, err := time.Parse(time.RFC3339Nano, meta[metaMtime]); err == nil {
		attr.Mtime = t
		attr.Atime = t
	}

	return attr
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func translateError(err error, p string) error {
	clean := metadata.CleanPath(p)
	if isNotFound(err) {
		return metadata.NewNotFoundError(clean)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return metadata.NewAlreadyExistsError(clean)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &metadata.StoreError{Code: metadata.ErrIOError, Message: err.Error(), Path: clean}
}
