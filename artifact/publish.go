package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ContentType is the media type of a serialized bundle.
const ContentType = "application/cbor"

// ObjectAPI is the subset of the S3 client used by Publisher.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Publisher stores bundles in an S3 bucket under
// <prefix>/<name>/<version>/<id>.cbor.
type Publisher struct {
	client ObjectAPI
	bucket string
	prefix string
	log    zerolog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) PublisherOption {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.log = log
	}
}

// NewPublisher returns a publisher using client.
func NewPublisher(client ObjectAPI, bucket string, opts ...PublisherOption) *Publisher {
	p := &Publisher{client: client, bucket: bucket, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// S3Config selects the AWS account and endpoint to publish to. Empty fields
// fall back to the default AWS configuration chain.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client from cfg and the default AWS
// configuration chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("artifact: load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key for b.
func (p *Publisher) Key(b *Bundle) string {
	version := b.Version
	if version == "" {
		version = "unversioned"
	}
	return path.Join(p.prefix, b.Name, version, b.ID+".cbor")
}

// Publish uploads b and returns its object key.
func (p *Publisher) Publish(ctx context.Context, b *Bundle) (string, error) {
	data, err := Marshal(b)
	if err != nil {
		return "", fmt.Errorf("artifact: marshal bundle: %w", err)
	}
	key := p.Key(b)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
		Metadata: map[string]string{
			"build-id": b.ID,
			"checksum": b.Checksum,
		},
	})
	if err != nil {
		return "", fmt.Errorf("artifact: put s3://%s/%s: %w", p.bucket, key, err)
	}
	p.log.Info().
		Str("bucket", p.bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("published bundle")
	return key, nil
}

// Fetch downloads and verifies the bundle stored at key.
func (p *Publisher) Fetch(ctx context.Context, key string) (*Bundle, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: get s3://%s/%s: %w", p.bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("artifact: read s3://%s/%s: %w", p.bucket, key, err)
	}
	b, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := b.Verify(); err != nil {
		return nil, err
	}
	return b, nil
}
