// utils/r2.go
package utils

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Settings are the Cloudflare R2 credentials for the render mirror.
type R2Settings struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// R2Mirror uploads rendered images to R2 so the gateway can send a URL
// instead of a local path.
type R2Mirror struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

// NewR2Mirror returns nil (mirror disabled) when no bucket is configured.
func NewR2Mirror(ctx context.Context, cfg R2Settings) (*R2Mirror, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	cdn := strings.TrimRight(cfg.CDNBaseURL, "/")
	if cdn == "" {
		cdn = endpoint
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Mirror{client: client, bucket: cfg.Bucket, cdnBaseURL: cdn}, nil
}

// UploadFile uploads a local file and returns its public URL.
func (m *R2Mirror) UploadFile(ctx context.Context, key, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", m.cdnBaseURL, key), nil
}
