package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	appconfig "github.com/wolfman30/frontdesk-ai/internal/config"
)

// AWSClients are the SDK clients the binaries use. Either may be nil when the
// configuration does not call for it.
type AWSClients struct {
	Bedrock *bedrockruntime.Client
	SES     *sesv2.Client
}

// NeedsAWS reports whether any configured provider talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	return cfg.LLMProvider == "bedrock" || cfg.LLMFallbackProvider == "bedrock" || cfg.EmailProvider == "ses"
}

// LoadAWSConfig builds the SDK config from the app config. Static keys win
// over the default chain; AWS_ENDPOINT_OVERRIDE points SES and Bedrock at a
// local emulator.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}

// NewAWSClients creates the Bedrock and SES clients needed by cfg.
func NewAWSClients(ctx context.Context, cfg *appconfig.Config) (AWSClients, error) {
	if !NeedsAWS(cfg) {
		return AWSClients{}, nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return AWSClients{}, err
	}

	endpoint := strings.TrimSpace(cfg.AWSEndpointOverride)
	var out AWSClients
	if cfg.LLMProvider == "bedrock" || cfg.LLMFallbackProvider == "bedrock" {
		out.Bedrock = bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
	}
	if cfg.EmailProvider == "ses" {
		out.SES = sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
	}
	return out, nil
}
