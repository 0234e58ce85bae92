package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/okhotin/pagepress/app/cfg"
)

var _ Lister = (*Client)(nil)
var _ Fetcher = (*Client)(nil)

// Client wraps the S3 API behind the Lister and Fetcher capabilities used by
// the pipeline.
type Client struct {
	s3 *s3.S3
}

func NewClient(c *cfg.Cfg) (*Client, error) {
	awsConfig := &aws.Config{
		Region: aws.String(c.S3Region),
	}

	// Custom endpoint with path-style addressing for MinIO-compatible stores
	if c.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(c.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	if c.S3AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(c.S3AccessKey, c.S3SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &Client{s3: s3.New(sess)}, nil
}

// ListObjects pages through the bucket listing. When exhaustive is false,
// objects modified before the since cutoff are filtered out.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string, since time.Time, exhaustive bool) ([]Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []Object
	err := c.s3.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, item := range page.Contents {
			if item.Key == nil || item.LastModified == nil {
				continue
			}
			if !exhaustive && item.LastModified.Before(since) {
				continue
			}
			objects = append(objects, Object{
				Key:          strings.TrimPrefix(*item.Key, "/"),
				Size:         aws.Int64Value(item.Size),
				LastModified: item.LastModified.UTC(),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
	}

	slog.Debug("Bucket listing complete", "bucket", bucket, "prefix", prefix, "objects", len(objects), "exhaustive", exhaustive)

	return objects, nil
}

// FetchObject retrieves the full body of a single object.
func (c *Client) FetchObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body %s: %w", key, err)
	}

	return data, nil
}
