package publish

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// S3Config holds S3 publish settings
type S3Config struct {
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	SessionToken   string // For temporary credentials
	RoleARN        string // For IAM role assumption
	ExternalID     string
	EndpointURL    string // For S3-compatible services
	ForcePathStyle bool
	MaxRetries     int
}

// S3Publisher uploads documents to an S3 bucket
type S3Publisher struct {
	client *s3.Client
	bucket string
}

// NewS3Publisher creates an S3 client from the default AWS credential chain,
// static keys, or an assumed role.
func NewS3Publisher(ctx context.Context, s3Config *S3Config) (*S3Publisher, error) {
	if s3Config.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if s3Config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	cfgOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s3Config.Region),
	}

	if s3Config.AccessKey != "" && s3Config.SecretKey != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Config.AccessKey, s3Config.SecretKey, s3Config.SessionToken),
		))
	}

	if s3Config.MaxRetries > 0 {
		cfgOpts = append(cfgOpts, awsconfig.WithRetryMaxAttempts(s3Config.MaxRetries))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if s3Config.RoleARN != "" {
		stsSvc := sts.NewFromConfig(cfg)
		cfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsSvc, s3Config.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if s3Config.ExternalID != "" {
				o.ExternalID = aws.String(s3Config.ExternalID)
			}
		}))
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s3Config.EndpointURL != "" {
			o.BaseEndpoint = aws.String(s3Config.EndpointURL)
		}
		o.UsePathStyle = s3Config.ForcePathStyle
	})

	return &S3Publisher{client: client, bucket: s3Config.Bucket}, nil
}

func (p *S3Publisher) Name() string {
	return "s3"
}

func (p *S3Publisher) Publish(ctx context.Context, key string, body []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}
