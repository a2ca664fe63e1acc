// Package objectstore provides the object storage collaborator used to
// persist source artifacts.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/docmill/extraction-engine/internal/config"
)

// Store is the capability the ingestion pipeline needs from object storage.
type Store interface {
	Put(ctx context.Context, location string, body []byte) error
	Delete(ctx context.Context, location string) error
}

// Location is a parsed s3://bucket/key object location.
type Location struct {
	Bucket string
	Key    string
}

// ParseLocation splits an s3://bucket/key string.
func ParseLocation(location string) (Location, error) {
	trimmed := strings.TrimPrefix(location, "s3://")
	if trimmed == location {
		return Location{}, fmt.Errorf("location %q is not an s3:// path", location)
	}
	bucket, key, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, fmt.Errorf("location %q is missing bucket or key", location)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// BuildInputLocation derives the storage path for an uploaded artifact:
// s3://bucket/tenant/task/token/filename. The uniqueness token keeps
// concurrent uploads of identically named files from colliding.
func BuildInputLocation(bucket, tenantID, taskID, token, fileName string) string {
	return fmt.Sprintf("s3://%s/%s/%s/%s/%s", bucket, tenantID, taskID, token, fileName)
}

// S3Store implements Store on the AWS S3 API. It works against AWS or any
// S3-compatible endpoint (MinIO and friends) via config.Storage.Endpoint.
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates an S3-backed store from the service configuration.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client}, nil
}

// Put uploads body to the given s3://bucket/key location.
func (s *S3Store) Put(ctx context.Context, location string, body []byte) error {
	loc, err := ParseLocation(location)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", location, err)
	}
	return nil
}

// Delete removes the object at the given location. Used as a best-effort
// compensation when bookkeeping fails after an upload.
func (s *S3Store) Delete(ctx context.Context, location string) error {
	loc, err := ParseLocation(location)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", location, err)
	}
	return nil
}
