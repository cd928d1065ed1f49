// File: pkg/storage/aws/aws.go

// Package aws implements the storage backend for S3-compatible services.
// It serves both AWS S3 ("aws") and DigitalOcean Spaces ("spaces"); the two differ only
// in endpoint, credential requirements and checksum behaviour.
package aws

import (
	"context"
	"fmt"
	"log/slog"

	"bucketeer/internal/config"
	"bucketeer/internal/provider/registry"
	"bucketeer/pkg/common"
	"bucketeer/pkg/storage"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	spacesEndpointFormat = "https://%s.digitaloceanspaces.com"

	// Spaces ignores the signing region beyond requiring one
	spacesFallbackRegion = "us-east-1"

	maxRetryAttempts = 5
)

func init() {
	registry.RegisterProvider("aws", registry.ProviderRegistration{
		ConfigCheck:  isAWSConfigured,
		Initializer:  initializeAWS,
		RequiredKeys: []string{"s3.region"},
	})
	registry.RegisterProvider("spaces", registry.ProviderRegistration{
		ConfigCheck:  isSpacesConfigured,
		Initializer:  initializeSpaces,
		RequiredKeys: []string{"s3.access_key_id", "s3.secret_access_key", "s3.region"},
	})
}

// AWS can fall back to the SDK's default credential chain, so only the region is required.
// NewS3Storage resolves that chain and fails with ErrConfiguration when it yields nothing.
func isAWSConfigured(cfg *config.Config) bool {
	return cfg.S3.Region != ""
}

func isSpacesConfigured(cfg *config.Config) bool {
	return cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" &&
		(cfg.S3.Region != "" || cfg.S3.Endpoint != "")
}

func initializeAWS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	return NewS3Storage(ctx, settingsFromConfig(common.AWS, cfg), logger)
}

func initializeSpaces(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	return NewS3Storage(ctx, settingsFromConfig(common.Spaces, cfg), logger)
}

func settingsFromConfig(provider common.Provider, cfg *config.Config) Settings {
	return Settings{
		Provider:        provider,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		UsePathStyle:    cfg.S3.UsePathStyle,
		PartSize:        cfg.Storage.ChunkSize,
	}
}

// SpacesEndpoint returns the regional DigitalOcean Spaces endpoint, e.g. https://nyc3.digitaloceanspaces.com
func SpacesEndpoint(region string) string {
	return fmt.Sprintf(spacesEndpointFormat, region)
}

// Settings describes how to reach an S3-compatible service
type Settings struct {
	Provider        common.Provider
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	// Empty uses AWS endpoint resolution, or the regional endpoint for Spaces
	Endpoint     string
	UsePathStyle bool
	// Part size used for streamed uploads; zero uses the SDK default
	PartSize int64
}

// S3API is the subset of *s3.Client used by the backend
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient

	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
}

// PresignAPI is implemented by *s3.PresignClient
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Storage struct {
	client    S3API
	presigner PresignAPI
	provider  common.Provider
	region    string
	partSize  int64
	logger    *slog.Logger
}

var (
	_ storage.Storage          = (*S3Storage)(nil)
	_ storage.MultipartStorage = (*S3Storage)(nil)
	_ storage.BucketManager    = (*S3Storage)(nil)
	_ storage.Presigner        = (*S3Storage)(nil)
)

// NewS3Storage builds an SDK client from settings. Incomplete credentials yield an error
// wrapping storage.ErrConfiguration.
func NewS3Storage(ctx context.Context, settings Settings, logger *slog.Logger) (*S3Storage, error) {
	if (settings.AccessKeyID == "") != (settings.SecretAccessKey == "") {
		return nil, fmt.Errorf("%w: access key ID and secret access key must be set together", storage.ErrConfiguration)
	}

	if settings.Provider == common.Spaces {
		if settings.AccessKeyID == "" {
			return nil, fmt.Errorf("%w: Spaces requires an access key ID and secret access key", storage.ErrConfiguration)
		}
		if settings.Endpoint == "" {
			if settings.Region == "" {
				return nil, fmt.Errorf("%w: Spaces requires a region or an endpoint", storage.ErrConfiguration)
			}
			settings.Endpoint = SpacesEndpoint(settings.Region)
		}
		if settings.Region == "" {
			settings.Region = spacesFallbackRegion
		}
	}
	if settings.Region == "" {
		return nil, fmt.Errorf("%w: region is not set", storage.ErrConfiguration)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(settings.Region),
		awsconfig.WithRetryMode(awssdk.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(maxRetryAttempts),
	}
	if settings.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS SDK configuration: %v", storage.ErrConfiguration, err)
	}
	if settings.AccessKeyID == "" {
		if err := resolveDefaultCredentials(ctx, awsCfg); err != nil {
			return nil, err
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = awssdk.String(settings.Endpoint)
		}
		o.UsePathStyle = settings.UsePathStyle
		// Third-party S3 implementations reject the SDK's default flexible checksums
		if settings.Provider != common.AWS {
			o.RequestChecksumCalculation = awssdk.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = awssdk.ResponseChecksumValidationWhenRequired
		}
	})

	s := New(client, s3.NewPresignClient(client), settings.Provider, settings.Region, logger)
	s.partSize = settings.PartSize
	return s, nil
}

// resolveDefaultCredentials fetches credentials from the SDK's default chain (environment,
// shared files, SSO, container or instance roles) so that finding none is reported as a
// configuration error here rather than as a failed request later
func resolveDefaultCredentials(ctx context.Context, awsCfg awssdk.Config) error {
	if awsCfg.Credentials == nil {
		return fmt.Errorf("%w: no credentials found: no credential provider configured", storage.ErrConfiguration)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("%w: no credentials found: %v", storage.ErrConfiguration, err)
	}
	return nil
}

// New wraps an existing client. presigner may be nil, in which case presigning is unsupported.
func New(client S3API, presigner PresignAPI, provider common.Provider, region string, logger *slog.Logger) *S3Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Storage{
		client:    client,
		presigner: presigner,
		provider:  provider,
		region:    region,
		logger:    logger,
	}
}

func (s *S3Storage) ProviderName() common.Provider {
	return s.provider
}

func (s *S3Storage) Close() error {
	// The SDK client holds no resources that need releasing
	return nil
}
