package services

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/savaki/ssm-runtime-audit/internal/errors"
)

// ClientFactory constructs a DocumentService for a region.
type ClientFactory interface {
	ForRegion(ctx context.Context, region string) (DocumentService, error)
}

type identityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// SSMClientFactory derives per-region SSM clients from a base AWS config.
// The first construction of a run verifies that usable credentials are
// present; credential failures are reported as ErrMissingCredentials so the
// caller can abort the whole run rather than skip a single item. The factory
// is not safe for concurrent use; the audit loop is sequential.
type SSMClientFactory struct {
	cfg      aws.Config
	identity identityAPI
	verified bool
}

// NewSSMClientFactory creates a factory over the given base config.
func NewSSMClientFactory(cfg aws.Config) *SSMClientFactory {
	return &SSMClientFactory{
		cfg:      cfg,
		identity: sts.NewFromConfig(cfg),
	}
}

// ForRegion returns a DocumentService bound to the given region.
func (f *SSMClientFactory) ForRegion(ctx context.Context, region string) (DocumentService, error) {
	if !f.verified {
		if err := f.verifyCredentials(ctx); err != nil {
			return nil, err
		}
		f.verified = true
	}

	client := ssm.NewFromConfig(f.cfg, func(o *ssm.Options) {
		o.Region = region
	})
	return NewSSMDocumentService(client), nil
}

// verifyCredentials resolves the credential chain and confirms the identity
// with STS. The SDK defers credential resolution to the first signed call,
// so without this check a missing-credentials condition would surface as an
// ordinary per-document fetch failure and the run would limp through every
// ARN instead of aborting.
func (f *SSMClientFactory) verifyCredentials(ctx context.Context) error {
	if _, err := f.cfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingCredentials, err)
	}

	if _, err := f.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		if isCredentialError(err) {
			return fmt.Errorf("%w: %v", errors.ErrMissingCredentials, err)
		}
		// Transient STS failures are not cached; the next ARN in this
		// region retries verification.
		return fmt.Errorf("failed to verify caller identity: %w", err)
	}

	return nil
}

// isCredentialError reports whether an STS failure indicates bad or missing
// credentials rather than a transient service problem.
func isCredentialError(err error) bool {
	var apiErr smithy.APIError
	if !goerrors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "InvalidClientTokenId", "UnrecognizedClientException", "ExpiredToken", "SignatureDoesNotMatch", "MissingAuthenticationToken":
		return true
	}
	return false
}
