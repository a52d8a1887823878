package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
	minioBucket string
	minioPublic string
)

// ConnectUploader initializes the MinIO client from environment variables and
// makes sure the target bucket exists. Returns an error when MINIO_ENDPOINT
// is unset so main can decide whether uploads are required.
func ConnectUploader() error {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		return fmt.Errorf("MINIO_ENDPOINT is not set")
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "complaints"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	minioClient = client
	minioBucket = bucket
	minioPublic = os.Getenv("MINIO_PUBLIC_URL")
	if minioPublic == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		minioPublic = scheme + "://" + endpoint
	}

	log.Println("Connected to MinIO")
	return nil
}

// UploaderReady reports whether the upload boundary is configured.
func UploaderReady() bool {
	return minioClient != nil
}

// UploadImage stores image bytes under a unique key in the configured bucket
// and returns a durable URL.
func UploadImage(ctx context.Context, folder, filename, contentType string, data []byte) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("upload service is not configured")
	}

	ext := path.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	objectName := strings.Trim(folder, "/") + "/" + uuid.New().String() + ext

	_, err := minioClient.PutObject(ctx, minioBucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return minioPublic + "/" + minioBucket + "/" + objectName, nil
}
