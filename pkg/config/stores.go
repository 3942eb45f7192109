package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/metadata/badger"
	"github.com/marmos91/wormfs/pkg/metadata/localfs"
	"github.com/marmos91/wormfs/pkg/metadata/memory"
	s3store "github.com/marmos91/wormfs/pkg/metadata/s3"
	"github.com/mitchellh/mapstructure"
)

// s3YAMLConfig represents S3 configuration loaded from YAML files.
type s3YAMLConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// CreateMetadataStore creates a single metadata store instance.
//
// Supported types:
//   - "memory": pkg/metadata/memory (ephemeral)
//   - "badger": pkg/metadata/badger (BadgerDB, persistent)
//   - "localfs": pkg/metadata/localfs (attributes of a real directory tree)
//   - "s3": pkg/metadata/s3 (S3 object user metadata)
func CreateMetadataStore(ctx context.Context, cfg MetadataStoreConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryMetadataStore(ctx, cfg.Memory)
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	case "localfs":
		return createLocalFSMetadataStore(ctx, cfg.LocalFS)
	case "s3":
		return createS3MetadataStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger, localfs, s3)", cfg.Type)
	}
}

// createMemoryMetadataStore creates an in-memory metadata store.
func createMemoryMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg memory.MemoryMetadataStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}

	return memory.NewMemoryMetadataStore(storeCfg), nil
}

// createBadgerMetadataStore creates a BadgerDB-based persistent metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	var storeCfg badger.BadgerMetadataStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	store, err := badger.NewBadgerMetadataStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}
	return store, nil
}

// createLocalFSMetadataStore creates a store reading attributes from a directory tree.
func createLocalFSMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	var storeCfg localfs.LocalFSStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid localfs config: %w", err)
	}

	store, err := localfs.NewLocalFSStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create localfs metadata store: %w", err)
	}
	return store, nil
}

// createS3MetadataStore creates an S3-backed metadata store.
func createS3MetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	var yamlCfg s3YAMLConfig
	if err := mapstructure.Decode(options, &yamlCfg); err != nil {
		return nil, fmt.Errorf("invalid S3 config: %w", err)
	}

	if yamlCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 metadata store: bucket is required")
	}
	if yamlCfg.Region == "" {
		return nil, fmt.Errorf("S3 metadata store: region is required")
	}

	client, err := newS3Client(ctx, yamlCfg)
	if err != nil {
		return nil, err
	}

	store, err := s3store.NewS3MetadataStore(ctx, s3store.S3MetadataStoreConfig{
		Client:    client,
		Bucket:    yamlCfg.Bucket,
		KeyPrefix: yamlCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 metadata store: %w", err)
	}

	logger.Info("S3 metadata store initialized: bucket=%s, region=%s, prefix=%s",
		yamlCfg.Bucket, yamlCfg.Region, yamlCfg.KeyPrefix)

	return store, nil
}

// newS3Client builds an S3 client from the store options. Static
// credentials are used when both keys are set, the default chain otherwise.
func newS3Client(ctx context.Context, cfg s3YAMLConfig) (*s3.Client, error) {
	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	// HEAD-heavy traffic; retry transient 5xx and throttling harder than
	// the SDK default of 3 attempts
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and Localstack need path-style addressing
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}
