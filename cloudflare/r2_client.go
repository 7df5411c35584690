// Package cloudflare provides clients for the Cloudflare services used by
// the app: R2 object storage and Turnstile bot checks.
package cloudflare

import (
	"context"
	"fmt"

	a "bitwise74/seed-swap/aws"
	"bitwise74/seed-swap/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewR2 creates an S3 client pointed at a Cloudflare R2 bucket
func NewR2(ctx context.Context, c config.CloudflareConfig) (*a.S3Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID,
			c.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID))
	})

	if err := a.HeadBucket(ctx, client, c.Bucket); err != nil {
		return nil, err
	}

	return &a.S3Client{
		C:      client,
		Bucket: c.Bucket,
	}, nil
}
