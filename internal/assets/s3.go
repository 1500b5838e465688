package assets

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"

	"github.com/iliyamo/event-showcase/internal/apperr"
)

const emptyAWSSessionToken = ""

// S3Config configures the S3 asset store.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string // optional, for S3-compatible services
	PublicBaseURL   string // optional; defaults to the virtual-hosted bucket URL
	AccessKeyID     string
	SecretAccessKey string
	MaxBytes        int64
}

// S3 uploads assets to a bucket and returns their public URL.
type S3 struct {
	svc s3iface.S3API
	cfg S3Config
}

// NewS3 builds the client. Empty static credentials fall back to the
// SDK's default chain.
func NewS3(cfg S3Config) (*S3, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, emptyAWSSessionToken)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewS3WithClient(s3.New(sess), cfg), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(svc s3iface.S3API, cfg S3Config) *S3 {
	return &S3{svc: svc, cfg: cfg}
}

// objectKey keeps the original extension so browsers guess the type.
func (s *S3) objectKey(name string) string {
	ext := strings.ToLower(path.Ext(path.Base(name)))
	return s.cfg.Prefix + uuid.NewString() + ext
}

func (s *S3) publicURL(key string) string {
	if base := strings.TrimRight(s.cfg.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	if s.cfg.Endpoint != "" {
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

func (s *S3) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("empty upload")
	}
	if s.cfg.MaxBytes > 0 && int64(len(data)) > s.cfg.MaxBytes {
		return "", apperr.Validation("upload exceeds %d bytes", s.cfg.MaxBytes)
	}
	ct, err := sniff(contentType, data)
	if err != nil {
		return "", err
	}
	key := s.objectKey(name)
	_, err = s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ct),
	})
	if err != nil {
		return "", apperr.StorageUnavailable("assets: put object", err)
	}
	return s.publicURL(key), nil
}
