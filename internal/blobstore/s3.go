package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Bucket stores blob bytes in an S3 bucket under the same digest keys as LocalCAS.
type S3Bucket struct {
	client s3API
	bucket string
}

// NewS3Bucket loads the default AWS config for region and binds one bucket.
func NewS3Bucket(ctx context.Context, region, bucket string) (*S3Bucket, error) {
	region = strings.TrimSpace(region)
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Bucket{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func newS3BucketWithClient(client s3API, bucket string) *S3Bucket {
	return &S3Bucket{client: client, bucket: bucket}
}

// Backend names the storage backend recorded on blob rows.
func (b *S3Bucket) Backend() string {
	return BackendS3
}

// Bucket returns the bound bucket name.
func (b *S3Bucket) Bucket() string {
	return b.bucket
}

// Put buffers the content to compute its digest, then uploads it unless an
// object with the same key already exists.
func (b *S3Bucket) Put(ctx context.Context, r io.Reader) (BlobPutResult, error) {
	if err := b.ready(); err != nil {
		return BlobPutResult{}, err
	}
	var buf bytes.Buffer
	result, err := digestCopy(&buf, r)
	if err != nil {
		return BlobPutResult{}, err
	}

	exists, err := b.Exists(ctx, result.BlobKey)
	if err != nil {
		return BlobPutResult{}, err
	}
	if exists {
		return result, nil
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(result.BlobKey),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(result.SizeBytes),
	})
	if err != nil {
		return BlobPutResult{}, fmt.Errorf("failed to upload object: %w", err)
	}
	return result, nil
}

// Open returns the object body for key.
func (b *S3Bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := b.objectKey(key)
	if err != nil {
		return nil, err
	}
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	return output.Body, nil
}

// Exists reports whether an object is stored under key. A 404 from
// HeadObject means absent; any other failure is returned.
func (b *S3Bucket) Exists(ctx context.Context, key string) (bool, error) {
	key, err := b.objectKey(key)
	if err != nil {
		return false, err
	}
	_, err = b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) && statusErr.HTTPStatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

// Delete removes the object for key. S3 treats missing keys as success.
func (b *S3Bucket) Delete(ctx context.Context, key string) error {
	key, err := b.objectKey(key)
	if err != nil {
		return err
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (b *S3Bucket) ready() error {
	if b == nil || b.client == nil {
		return fmt.Errorf("blob store is not configured")
	}
	return nil
}

func (b *S3Bucket) objectKey(key string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}
	return cleanKey(key)
}
