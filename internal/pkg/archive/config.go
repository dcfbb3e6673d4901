package archive

import (
	"errors"
	"fmt"

	"github.com/glaciervault/glaciervault/internal/pkg/env"
)

// Config holds cold-storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	StorageClass    string
	RestoreDays     int
	PresignTTLSecs  int
}

// LoadConfig loads cold-storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "ap-northeast-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		StorageClass:    env.GetEnv("S3_STORAGE_CLASS", "DEEP_ARCHIVE"),
		RestoreDays:     7,
		PresignTTLSecs:  3600,
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}

	return config, nil
}

// GetObjectKey generates a standardized object key for a photo
func (c *Config) GetObjectKey(userID uint, photoUUID, fileName string) string {
	// Format: photos/<userID>/<uuid>/<filename>
	return fmt.Sprintf("photos/%d/%s/%s", userID, photoUUID, fileName)
}

// GetUserPrefix returns the key prefix holding all of a user's objects
func (c *Config) GetUserPrefix(userID uint) string {
	return fmt.Sprintf("photos/%d/", userID)
}

// GetBucketName returns the bucket name as configured
func (c *Config) GetBucketName() string {
	return c.BucketName
}
