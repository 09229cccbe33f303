package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config holds the settings for an S3 or S3-compatible backend.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Provider implements Provider on Amazon S3 or compatible services.
type S3Provider struct {
	client *s3.S3
	bucket string
}

// NewS3Provider creates a new S3-backed provider.
func NewS3Provider(cfg S3Config) (*S3Provider, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	// Custom endpoint for S3-compatible services
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	return &S3Provider{
		client: s3.New(sess),
		bucket: cfg.Bucket,
	}, nil
}

// Save uploads data to S3.
func (sp *S3Provider) Save(key string, data []byte) error {
	_, err := sp.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(sp.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed for %s: %v", key, err)
	}
	return nil
}

// Read downloads an object from S3.
func (sp *S3Provider) Read(key string) ([]byte, error) {
	result, err := sp.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(sp.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download failed for %s: %v", key, err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

// Delete removes an object; missing objects count as deleted.
func (sp *S3Provider) Delete(key string) error {
	_, err := sp.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(sp.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFoundErr(err) {
		return fmt.Errorf("s3 delete failed for %s: %v", key, err)
	}
	return nil
}

// Exists checks whether an object is present.
func (sp *S3Provider) Exists(key string) (bool, error) {
	_, err := sp.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(sp.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isNotFoundErr(err error) bool {
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		code := awsErr.Code()
		return code == s3.ErrCodeNoSuchKey || code == "NotFound"
	}
	return strings.Contains(err.Error(), "NotFound")
}
