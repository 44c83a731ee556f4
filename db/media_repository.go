package db

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/techagentng/sakany/config"
)

// BlobStore stores listing images. Put returns the public URL of the object.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type s3BlobStore struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3BlobStore(c *config.Config) (BlobStore, error) {
	if c.AWSBucket == "" {
		return nil, errors.New("s3: bucket is not configured")
	}
	client, err := createS3Client(c)
	if err != nil {
		return nil, err
	}
	return &s3BlobStore{client: client, bucket: c.AWSBucket, region: c.AWSRegion}, nil
}

func createS3Client(c *config.Config) (*s3.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(c.AWSRegion)}
	if c.AWSAccessKeyID != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AWSAccessKeyID,
			c.AWSSecretAccessKey,
			"",
		)))
	}
	cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *s3BlobStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s to s3", key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *s3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "deleting %s from s3", key)
	}
	return nil
}

type localBlobStore struct {
	dir     string
	baseURL string
}

// NewLocalBlobStore writes objects under dir and serves them from baseURL + "/uploads/".
func NewLocalBlobStore(dir, baseURL string) (BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &localBlobStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *localBlobStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("empty blob key")
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}

func (l *localBlobStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.Wrap(err, "creating blob dir")
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", key)
	}
	return l.baseURL + "/uploads/" + strings.TrimLeft(key, "/"), nil
}

func (l *localBlobStore) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		log.Printf("removing blob %s: %v", key, err)
		return errors.Wrapf(err, "removing %s", key)
	}
	return nil
}
