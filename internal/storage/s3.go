package storage

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"bitwise74/seed-swap/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// ObjectAPI is the part of the S3 client the store needs
type ObjectAPI interface {
	manager.UploadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps images in an S3 compatible bucket (AWS S3 or Cloudflare R2).
// Objects are public through PublicURL.
type S3Store struct {
	Client    ObjectAPI
	Bucket    string
	PublicURL string
	MaxSize   int64

	// Resize turns on Cloudflare image resizing URLs in OptimizedURL. Only
	// useful when PublicURL is a Cloudflare zone.
	Resize bool

	uploader *manager.Uploader
}

func NewS3Store(c ObjectAPI, bucket, publicURL string, maxSize int64, resize bool) *S3Store {
	return &S3Store{
		Client:    c,
		Bucket:    bucket,
		PublicURL: strings.TrimRight(publicURL, "/"),
		MaxSize:   maxSize,
		Resize:    resize,
		uploader: manager.NewUploader(c, func(u *manager.Uploader) {
			u.Concurrency = 2
		}),
	}
}

func (s *S3Store) Store(ctx context.Context, folder string, u Upload) (string, error) {
	mime, err := Check(u, s.MaxSize)
	if err != nil {
		return "", err
	}

	key, err := newKey(folder, mime)
	if err != nil {
		return "", apperr.UpstreamStorage(err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(u.Data),
		ContentLength: aws.Int64(int64(len(u.Data))),
		ContentType:   aws.String(mime.String()),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", apperr.UpstreamStorage(err)
	}

	zap.L().Debug("Stored image in bucket", zap.String("key", key), zap.String("original_name", u.Filename))
	return s.PublicURL + "/" + key, nil
}

func (s *S3Store) OptimizedURL(ref string, o TransformOpts) string {
	if !s.Resize {
		return ref
	}

	return cloudflareURL(ref, s.PublicURL, o)
}

func (s *S3Store) Remove(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s.PublicURL+"/")
	if !ok || key == "" {
		return nil
	}

	if u, err := url.PathUnescape(key); err == nil {
		key = u
	}

	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// Already gone is what we wanted
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil
		}

		return apperr.UpstreamStorage(err)
	}

	return nil
}
