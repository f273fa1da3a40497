// Package awsclient builds the service clients shared by every stage from
// one SDK configuration.
package awsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediapackagevod"
	"github.com/aws/aws-sdk-go-v2/service/mediatailor"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"fastchannels/internal/config"
)

// Clients holds one client per managed service.
type Clients struct {
	Config       aws.Config
	S3           *s3.Client
	MediaConvert *mediaconvert.Client
	MediaPackage *mediapackagevod.Client
	MediaTailor  *mediatailor.Client
	EventBridge  *eventbridge.Client
	SNS          *sns.Client
}

// LoadSDKConfig resolves credentials and region with adaptive client-side
// retry capped at the configured attempts.
func LoadSDKConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	maxAttempts := cfg.AWS.MaxAttempts
	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewAdaptiveMode(func(o *retry.AdaptiveModeOptions) {
				o.StandardOptions = append(o.StandardOptions, func(so *retry.StandardOptions) {
					so.MaxAttempts = maxAttempts
				})
			})
		}),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return sdkCfg, nil
}

// New constructs every service client.
func New(ctx context.Context, cfg *config.Config) (*Clients, error) {
	sdkCfg, err := LoadSDKConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(cfg.AWS.MediaConvertBaseURL)
	return &Clients{
		Config: sdkCfg,
		S3:     s3.NewFromConfig(sdkCfg),
		MediaConvert: mediaconvert.NewFromConfig(sdkCfg, func(o *mediaconvert.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		MediaPackage: mediapackagevod.NewFromConfig(sdkCfg),
		MediaTailor:  mediatailor.NewFromConfig(sdkCfg),
		EventBridge:  eventbridge.NewFromConfig(sdkCfg),
		SNS:          sns.NewFromConfig(sdkCfg),
	}, nil
}

// CredentialsAvailable reports whether the credential chain yields credentials.
func CredentialsAvailable(ctx context.Context, sdkCfg aws.Config) error {
	if sdkCfg.Credentials == nil {
		return fmt.Errorf("no credential provider configured")
	}
	creds, err := sdkCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	if !creds.HasKeys() {
		return fmt.Errorf("credential provider returned empty keys")
	}
	return nil
}
