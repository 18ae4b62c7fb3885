package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
)

// s3API is the subset of the S3 client the storage backend needs.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type s3Storage struct {
	client    s3API
	bucket    string
	region    string
	prefix    string
	publicURL string
}

func newS3Storage(cfg config.StorageConfig) (*s3Storage, error) {
	s3cfg := cfg.S3
	if s3cfg.Bucket == "" || s3cfg.Region == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket and region are required")
	}

	opts := s3.Options{
		Region:       s3cfg.Region,
		UsePathStyle: s3cfg.PathStyle,
	}
	if s3cfg.AccessKeyID != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, "")
	}
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(strings.TrimSuffix(endpoint, "/"))
	}

	return &s3Storage{
		client:    s3.New(opts),
		bucket:    s3cfg.Bucket,
		region:    s3cfg.Region,
		prefix:    strings.Trim(s3cfg.Prefix, "/"),
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *s3Storage) objectKey(path string) string {
	key := strings.TrimLeft(path, "/")
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key
}

func (s *s3Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head object %q: %w", path, err)
	}
	return true, nil
}

func (s *s3Storage) PublicURL(path string) string {
	key := s.objectKey(path)
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
