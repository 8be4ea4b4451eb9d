package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Service stores photos in Amazon S3 (or compatible APIs). Catch records
// hold the object key relative to the configured key prefix.
type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	keyPrefix string
}

func NewS3Service(client *s3.Client, bucket, keyPrefix string) *S3Service {
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *S3Service) SavePhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}

	rel := path.Join("uploads", uuid.NewString()+sanitizeExt(filename))
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(rel)),
		Body:   r,
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	return rel, nil
}

func (s *S3Service) RemovePhoto(ctx context.Context, relPath string) error {
	if s.bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if strings.TrimSpace(relPath) == "" {
		return fmt.Errorf("photo path is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(relPath)),
	})
	if err != nil {
		return fmt.Errorf("delete photo object: %w", err)
	}
	return nil
}

func (s *S3Service) PhotoURL(ctx context.Context, relPath string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = 15 * time.Minute
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(relPath)),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign photo url: %w", err)
	}
	return req.URL, nil
}

func (s *S3Service) objectKey(relPath string) string {
	rel := strings.TrimPrefix(relPath, "/")
	if s.keyPrefix == "" {
		return rel
	}
	return s.keyPrefix + "/" + rel
}

var _ Service = (*S3Service)(nil)
