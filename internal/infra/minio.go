package infra

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinioClient connects and makes sure the bucket exists with a public
// read-only policy.
func NewMinioClient(ctx context.Context, endpoint, accessKey, secretKey, bucket string, secure bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if exists {
		return client, nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return nil, fmt.Errorf("minio make bucket: %w", err)
	}

	publicPolicy := `{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Action": ["s3:GetObject"],
				"Effect": "Allow",
				"Principal": "*",
				"Resource": "arn:aws:s3:::` + bucket + `/*"
			}
		]
	}`
	if err := client.SetBucketPolicy(ctx, bucket, publicPolicy); err != nil {
		return nil, fmt.Errorf("minio bucket policy: %w", err)
	}
	return client, nil
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioStore keeps originals in an S3-compatible bucket. It cannot transcode,
// so the transformation requested for reels is only recorded as metadata.
type MinioStore struct {
	client    objectPutter
	bucket    string
	publicURL string
}

func NewMinioStore(client *minio.Client, bucket, publicURL string) *MinioStore {
	return &MinioStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

var _ ports.MediaStore = (*MinioStore)(nil)

func (s *MinioStore) Submit(ctx context.Context, path string, category models.Category) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open staged file: %v", ports.ErrRemoteSubmission, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat staged file: %v", ports.ErrRemoteSubmission, err)
	}

	key := category.Folder() + "/" + filepath.Base(path)
	opts := minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
	}
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}
	if category == models.UserReel {
		opts.UserMetadata = map[string]string{"requested-transformation": ReelTransformation}
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, f, info.Size(), opts); err != nil {
		return "", fmt.Errorf("%w: minio put: %v", ports.ErrRemoteSubmission, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
}
