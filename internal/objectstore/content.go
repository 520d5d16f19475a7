package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// UploadResult is the outcome of a content-addressed upload, per §4.4.
type UploadResult struct {
	Key      string
	Hash     string
	Size     int64
	Uploaded bool // false when the object already existed (HEAD hit)
}

// UploadContentAddressed derives the object's key from SHA256(data)+ext and
// uploads only if that key is not already present, making the call idempotent
// across retries and across documents that happen to share bytes.
func UploadContentAddressed(ctx context.Context, store ObjectStore, data []byte, ext, contentType string) (UploadResult, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := hash + ext

	if attrs, err := store.Head(ctx, key); err == nil {
		return UploadResult{Key: key, Hash: hash, Size: attrs.Size, Uploaded: false}, nil
	}

	_, err := store.Put(ctx, key, bytes.NewReader(data), PutOptions{ContentType: contentType})
	if err != nil {
		return UploadResult{}, fmt.Errorf("objectstore: content-addressed upload of %s: %w", key, err)
	}
	return UploadResult{Key: key, Hash: hash, Size: int64(len(data)), Uploaded: true}, nil
}

// BucketProvisioner is a backend that supports idempotent bucket bootstrap:
// backends that don't need bucket provisioning (e.g. MemoryStore) report success.
type BucketProvisioner interface {
	EnsureBucket(ctx context.Context, name string, maxObjectSizeBytes int64, allowedMIMETypes []string) error
}

// EnsureBuckets provisions every named bucket, treating "already exists" as
// success. A nil provisioner is a no-op.
func EnsureBuckets(ctx context.Context, p BucketProvisioner, names []string, maxObjectSizeBytes int64, allowedMIMETypes []string) error {
	if p == nil {
		return nil
	}
	for _, name := range names {
		if err := p.EnsureBucket(ctx, name, maxObjectSizeBytes, allowedMIMETypes); err != nil {
			return fmt.Errorf("objectstore: ensure bucket %q: %w", name, err)
		}
	}
	return nil
}
