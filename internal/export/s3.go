package export

import (
	"context"
	"fmt"
	"io"
	"path"

	"vmx-go/internal/vmx"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configure the S3 destination. Endpoint and the static
// credential pair are optional; leaving them empty uses the ambient AWS
// credential chain, which is what a stock AWS deployment wants. The
// explicit fields exist for MinIO-style endpoints.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Destination stores exported objects in an S3 bucket.
type S3Destination struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Destination builds an S3 client from the options and wraps it as a
// destination.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 destination requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Destination{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Put uploads the object. A repeated key overwrites the previous object,
// matching the filesystem destination's replace semantics.
func (d *S3Destination) Put(key string, r io.Reader, size int64) error {
	_, err := d.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(d.objectKey(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// Validate verifies the bucket is reachable with the configured credentials.
func (d *S3Destination) Validate() error {
	_, err := d.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(d.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", d.bucket, err)
	}
	return nil
}

func (d *S3Destination) objectKey(key string) string {
	if d.prefix == "" {
		return key
	}
	return path.Join(d.prefix, key)
}

// Compile-time check
var _ vmx.Destination = (*S3Destination)(nil)
