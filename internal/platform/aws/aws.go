package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"hrflow/internal/platform/config"
)

// LoadConfig builds the SDK config. A configured AWS_ENDPOINT points every
// client at it (LocalStack in development) with static test credentials.
func LoadConfig(ctx context.Context, cfg config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSEndpoint != "" {
		log.Info().Str("endpoint", cfg.AWSEndpoint).Msg("routing AWS calls to custom endpoint")
		opts = append(opts,
			awsconfig.WithBaseEndpoint(cfg.AWSEndpoint),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// Needed reports whether any configured component talks to AWS.
func Needed(cfg config.Config) bool {
	return cfg.EmailProvider == config.EmailProviderSES || cfg.EventsQueueURL != ""
}
