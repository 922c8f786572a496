package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	metaVersion  = "Format-Version"
	metaStoredAt = "Stored-At"
)

// MinIOConfig points at an S3-compatible bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// MinIOStore keeps one object per entry in an S3-compatible bucket. The
// content address is the object name, so several gateways can share one
// bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// OpenMinIO connects to the bucket, creating it when it does not exist.
func OpenMinIO(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket, prefix: normalizePrefix(cfg.Prefix)}, nil
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (s *MinIOStore) objectName(key string) string {
	// ':' separates the text and context digests; keep object names plain.
	return s.prefix + strings.ReplaceAll(key, ":", "/")
}

func (s *MinIOStore) keyFor(object string) string {
	return strings.ReplaceAll(strings.TrimPrefix(object, s.prefix), "/", ":")
}

func (s *MinIOStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	name := s.objectName(key)
	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to get %s: %w", name, err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	version, storedAt := parseMetadata(info.UserMetadata, info.LastModified)
	return Entry{Key: key, Version: version, StoredAt: storedAt, Payload: payload}, true, nil
}

func (s *MinIOStore) Put(ctx context.Context, e Entry) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(e.Key),
		bytes.NewReader(e.Payload), int64(len(e.Payload)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				metaVersion:  strconv.Itoa(e.Version),
				metaStoredAt: strconv.FormatInt(e.StoredAt.UnixNano(), 10),
			},
		})
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	return nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, s.objectName(key), minio.RemoveObjectOptions{})
}

// List reads the write time from the Stored-At metadata, the same clock Get
// uses. Servers that do not return metadata in listings (plain S3) fall back
// to LastModified, which has second resolution; eviction on those is
// best-effort among writes in the same second.
func (s *MinIOStore) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       s.prefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		entries = append(entries, listEntry(s.keyFor(obj.Key), obj.UserMetadata, obj.LastModified))
	}
	return entries, nil
}

func listEntry(key string, meta map[string]string, lastModified time.Time) Entry {
	version, storedAt := parseMetadata(meta, lastModified)
	return Entry{Key: key, Version: version, StoredAt: storedAt}
}

// parseMetadata reads the version and write time stored with an object. A
// missing or unreadable version yields 0, which never equals FormatVersion,
// so the entry is treated as stale.
func parseMetadata(meta map[string]string, lastModified time.Time) (int, time.Time) {
	lookup := func(name string) string {
		for k, v := range meta {
			if strings.EqualFold(k, name) || strings.EqualFold(k, "X-Amz-Meta-"+name) {
				return v
			}
		}
		return ""
	}

	version, err := strconv.Atoi(lookup(metaVersion))
	if err != nil {
		version = 0
	}
	storedAt := lastModified
	if ns, err := strconv.ParseInt(lookup(metaStoredAt), 10, 64); err == nil {
		storedAt = time.Unix(0, ns)
	}
	return version, storedAt
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
