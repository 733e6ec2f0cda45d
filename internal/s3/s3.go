package s3

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultBucket receives finished recordings when no bucket is configured.
const DefaultBucket = "recordings"

// Client archives finished media files to an S3-compatible store.
type Client struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey, bucket string) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	return &Client{client: client, bucket: bucket}, nil
}

// EnsureBucket создает бакет, если его еще нет
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Upload copies the file at path to cam<slot>/<file name>.
func (c *Client) Upload(ctx context.Context, slot int, path string) error {
	_, err := c.client.FPutObject(ctx, c.bucket, ObjectName(slot, path), path, minio.PutObjectOptions{
		ContentType: contentType(path),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", path, err)
	}
	return nil
}

// CountArchived returns how many objects are stored for a camera.
func (c *Client) CountArchived(ctx context.Context, slot int) (int, error) {
	count := 0
	objectCh := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    fmt.Sprintf("cam%d/", slot),
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return 0, fmt.Errorf("error listing objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		count++
	}
	return count, nil
}

// ObjectName is the key a file from camera slot is stored under.
func ObjectName(slot int, path string) string {
	return fmt.Sprintf("cam%d/%s", slot, filepath.Base(path))
}

func contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
