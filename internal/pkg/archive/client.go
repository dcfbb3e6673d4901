package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gofiber/fiber/v2/log"
)

// ErrRestoreAlreadyInProgress signals that the backend is already
// restoring the object. Callers treat this as success.
var ErrRestoreAlreadyInProgress = errors.New("restore already in progress")

// ObjectStatus is the backend's view of a single archived object.
type ObjectStatus struct {
	StorageClass   string
	RestoreOngoing *bool
	RestoreExpiry  *time.Time
	Size           int64
}

// Client wraps the S3 client with cold-storage functionality
type Client struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	config        *Config
}

// NewClient creates a new cold-storage client
func NewClient(cfg *Config) (*Client, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	client := &Client{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		config:        cfg,
	}

	log.Infof("[Archive] Initialized S3 client for bucket: %s", cfg.GetBucketName())
	return client, nil
}

// PutArchival uploads an object directly into the archival storage class
// with server-side encryption.
func (c *Client) PutArchival(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(c.config.GetBucketName()),
		Key:                  aws.String(objectKey),
		Body:                 body,
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(size),
		StorageClass:         types.StorageClass(c.config.StorageClass),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to archive: %w", err)
	}

	log.Infof("[Archive] Uploaded s3://%s/%s (%d bytes, %s)",
		c.config.GetBucketName(), objectKey, size, c.config.StorageClass)
	return nil
}

// RequestRestore asks the backend to produce a temporary readable copy
// of the object. Returns ErrRestoreAlreadyInProgress if a restore for
// the same object is already running.
func (c *Client) RequestRestore(ctx context.Context, objectKey, tier string) error {
	_, err := c.s3Client.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(int32(c.config.RestoreDays)),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: types.Tier(tier),
			},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "RestoreAlreadyInProgress" {
			return ErrRestoreAlreadyInProgress
		}
		return fmt.Errorf("failed to request restore: %w", err)
	}

	log.Infof("[Archive] Restore requested for s3://%s/%s (tier %s)",
		c.config.GetBucketName(), objectKey, tier)
	return nil
}

// HeadStatus fetches the object's storage class and restore progress.
func (c *Client) HeadStatus(ctx context.Context, objectKey string) (*ObjectStatus, error) {
	head, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to head object: %w", err)
	}

	status := &ObjectStatus{
		StorageClass: string(head.StorageClass),
	}
	if head.ContentLength != nil {
		status.Size = *head.ContentLength
	}
	if head.Restore != nil {
		parsed := ParseRestoreHeader(*head.Restore)
		status.RestoreOngoing = parsed.Ongoing
		status.RestoreExpiry = parsed.Expiry
	}
	return status, nil
}

// PresignDownload returns a time-limited download URL for the object.
func (c *Client) PresignDownload(ctx context.Context, objectKey string) (string, error) {
	req, err := c.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(time.Duration(c.config.PresignTTLSecs)*time.Second))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

// DeleteObject deletes a single object from the archive
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	log.Infof("[Archive] Deleted s3://%s/%s", c.config.GetBucketName(), objectKey)
	return nil
}

// DeletePrefix deletes every object under the given key prefix,
// paginating through the listing.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	bucket := aws.String(c.config.GetBucketName())
	deleted := 0

	paginator := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{
		Bucket: bucket,
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
		out, err := c.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: bucket,
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete objects under %s: %w", prefix, err)
		}
		deleted += len(objects) - len(out.Errors)
		if len(out.Errors) > 0 {
			log.Warnf("[Archive] %d objects under %s failed to delete", len(out.Errors), prefix)
		}
	}

	log.Infof("[Archive] Deleted %d objects under s3://%s/%s", deleted, c.config.GetBucketName(), prefix)
	return deleted, nil
}
