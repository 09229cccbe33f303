package storage

import (
	"fmt"

	"omnidrive/config"
)

// NewProvider builds the configured byte store.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.StorageProvider {
	case "", "local":
		return NewLocalProvider(cfg.UploadDir)
	case "s3":
		return NewS3Provider(S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.StorageProvider)
	}
}
