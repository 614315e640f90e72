// Package objstore moves single files to and from an S3 bucket.
package objstore

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"stockpipe/internal/pipeerr"
)

// Client uploads and downloads whole files. Credentials come from the
// ambient AWS environment (env vars, shared config, instance role).
type Client struct {
	creds aws.CredentialsProvider
	api   *s3.Client
}

// New loads the default AWS configuration. region and endpoint are optional;
// a custom endpoint switches to path-style addressing for S3-compatible stores.
// Failing to load the shared config or profile (for example AWS_PROFILE naming
// a profile that does not exist) is a KindCredentials error.
func New(ctx context.Context, region, endpoint string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Warn().Err(err).Msg("load aws config failed")
		return nil, pipeerr.Wrap(pipeerr.KindCredentials, err, "load aws config")
	}
	return NewWithConfig(cfg, endpoint), nil
}

// NewWithConfig builds a client from an explicit configuration.
func NewWithConfig(cfg aws.Config, endpoint string) *Client {
	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Client{creds: cfg.Credentials, api: api}
}

// checkCredentials resolves credentials up front so missing or partial ones
// are reported as KindCredentials instead of surfacing as a signing failure.
func (c *Client) checkCredentials(ctx context.Context) error {
	if c.creds == nil {
		return pipeerr.New(pipeerr.KindCredentials, "no AWS credentials configured")
	}
	v, err := c.creds.Retrieve(ctx)
	if err != nil {
		return pipeerr.Wrap(pipeerr.KindCredentials, err, "unable to locate AWS credentials")
	}
	if v.AccessKeyID == "" || v.SecretAccessKey == "" {
		return pipeerr.New(pipeerr.KindCredentials, "partial AWS credentials")
	}
	return nil
}

// Upload puts localPath at bucket/key, overwriting any existing object.
func (c *Client) Upload(ctx context.Context, localPath, bucket, key string) error {
	if err := c.checkCredentials(ctx); err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("s3 upload failed")
		return err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "open %s", localPath)
	}
	defer file.Close()

	if _, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("s3 upload failed")
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "upload %s to %s/%s", localPath, bucket, key)
	}
	log.Info().Str("path", localPath).Str("bucket", bucket).Str("key", key).Msg("file uploaded")
	return nil
}

// Download writes bucket/key to localPath. A failed transfer removes the partial file.
func (c *Client) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := c.checkCredentials(ctx); err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("s3 download failed")
		return err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("s3 download failed")
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "download %s/%s", bucket, key)
	}
	defer out.Body.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "create %s", localPath)
	}
	n, err := io.Copy(file, out.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(localPath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			log.Warn().Err(rerr).Str("path", localPath).Msg("remove partial download")
		}
		log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("s3 download failed")
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "download %s/%s", bucket, key)
	}
	log.Info().Str("path", localPath).Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("file downloaded")
	return nil
}
