package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

var S3Client *s3.Client
var BucketName string
var Region string
var Endpoint string
var PublicBaseURL string

func InitStorage() {
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	BucketName = os.Getenv("S3_BUCKET")
	Region = os.Getenv("S3_REGION")
	Endpoint = os.Getenv("S3_ENDPOINT")
	PublicBaseURL = os.Getenv("S3_PUBLIC_BASE_URL")

	if accessKey == "" || secretKey == "" || BucketName == "" || Region == "" || Endpoint == "" {
		panic("Missing required object storage environment variables")
	}

	// Normalize endpoint - remove trailing slash
	endpoint := Endpoint
	if len(endpoint) > 0 && endpoint[len(endpoint)-1] == '/' {
		endpoint = endpoint[:len(endpoint)-1]
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		panic(fmt.Sprintf("Failed to load AWS config: %v", err))
	}

	// S3-compatible endpoint (AWS, R2, minio) with path-style addressing
	S3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	Endpoint = endpoint
	if PublicBaseURL == "" {
		PublicBaseURL = Endpoint + "/" + BucketName
	}

	log.Infof("Object storage initialized! Endpoint: %s, Region: %s, Bucket: %s", Endpoint, Region, BucketName)
}

// GeneratePresignedUploadURL generates a presigned URL for uploading a file
// Returns the presigned URL and any error that occurred
func GeneratePresignedUploadURL(objectKey string, expiration time.Duration) (string, error) {
	if S3Client == nil {
		return "", fmt.Errorf("storage client not initialized. Call InitStorage() first")
	}

	presignClient := s3.NewPresignClient(S3Client)

	request, err := presignClient.PresignPutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(BucketName),
		Key:    aws.String(objectKey),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})

	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

// PublicURL returns the stable public URL for an uploaded object. Clients
// place this value in mediaUrl / profileImage after completing the upload.
func PublicURL(objectKey string) string {
	return PublicBaseURL + "/" + objectKey
}

// ObjectKeyFromURL maps a public object URL back to its key. Returns false
// for URLs outside this bucket's public base, including external media.
func ObjectKeyFromURL(rawURL string) (string, bool) {
	if PublicBaseURL == "" {
		return "", false
	}
	prefix := PublicBaseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// IsFileExists checks whether an object exists in the bucket
func IsFileExists(objectKey string) (bool, error) {
	if S3Client == nil {
		return false, fmt.Errorf("storage client not initialized. Call InitStorage() first")
	}

	_, err := S3Client.HeadObject(context.TODO(), &s3.HeadObjectInput{
		Bucket: aws.String(BucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check if file exists: %w", err)
	}

	return true, nil
}

// DeleteFile deletes an object from storage
func DeleteFile(ctx context.Context, objectKey string) error {
	if S3Client == nil {
		return fmt.Errorf("storage client not initialized. Call InitStorage() first")
	}

	if objectKey == "" {
		return fmt.Errorf("object key cannot be empty")
	}

	_, err := S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(BucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s from bucket %s: %w", objectKey, BucketName, err)
	}

	return nil
}
