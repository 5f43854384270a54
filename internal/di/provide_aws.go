package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/savaki/ssm-runtime-audit/internal/services"
)

// ProvideAWSConfig loads the default AWS configuration. Called before the
// container is assembled so a failure can be reported as a startup
// precondition rather than a runtime error.
func ProvideAWSConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

// ProvideClientFactory provides the per-region SSM client factory.
func ProvideClientFactory(cfg aws.Config) services.ClientFactory {
	return services.NewSSMClientFactory(cfg)
}
