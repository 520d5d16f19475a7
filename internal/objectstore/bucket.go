package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// EnsureBucket creates the named bucket if it doesn't already exist. S3-
// compatible object stores (Supabase storage, MinIO) generally ignore the
// size/MIME hints at the API level; they are accepted for parity with the
// spec's bucket-create contract but not sent, stored or enforced here, and
// UploadContentAddressed does not check them either.
func (s *S3Store) EnsureBucket(ctx context.Context, name string, maxObjectSizeBytes int64, allowedMIMETypes []string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)})
	if err == nil {
		return nil
	}
	var alreadyOwned *s3types.BucketAlreadyOwnedByYou
	var alreadyExists *s3types.BucketAlreadyExists
	if errors.As(err, &alreadyOwned) || errors.As(err, &alreadyExists) {
		return nil
	}
	return fmt.Errorf("s3 create bucket %q: %w", name, err)
}

// EnsureBucket is a no-op for the in-memory store; every key lives in one
// flat namespace regardless of logical bucket.
func (m *MemoryStore) EnsureBucket(ctx context.Context, name string, maxObjectSizeBytes int64, allowedMIMETypes []string) error {
	return nil
}

var (
	_ BucketProvisioner = (*S3Store)(nil)
	_ BucketProvisioner = (*MemoryStore)(nil)
)
