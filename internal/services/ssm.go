// Package services wraps the AWS collaborators behind narrow interfaces so
// the audit loop can run against test doubles.
package services

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
	"github.com/savaki/ssm-runtime-audit/internal/document"
	"github.com/savaki/ssm-runtime-audit/internal/errors"
)

// DocumentAPI is the subset of the SSM client used to fetch documents.
type DocumentAPI interface {
	GetDocument(ctx context.Context, params *ssm.GetDocumentInput, optFns ...func(*ssm.Options)) (*ssm.GetDocumentOutput, error)
}

// DocumentService retrieves decoded SSM Automation document content.
type DocumentService interface {
	// GetContent fetches a document by name and decodes its JSON body.
	GetContent(ctx context.Context, name string) (*document.Content, error)
}

// SSMDocumentService implements DocumentService against AWS Systems Manager.
type SSMDocumentService struct {
	client DocumentAPI
}

// NewSSMDocumentService creates a DocumentService backed by the given client.
func NewSSMDocumentService(client DocumentAPI) *SSMDocumentService {
	return &SSMDocumentService{client: client}
}

// GetContent fetches the document in JSON format and decodes it. Missing or
// invalid documents return ErrDocumentNotFound; documents with an empty body
// return ErrEmptyDocument.
func (s *SSMDocumentService) GetContent(ctx context.Context, name string) (*document.Content, error) {
	result, err := s.client.GetDocument(ctx, &ssm.GetDocumentInput{
		Name:           aws.String(name),
		DocumentFormat: ssmtypes.DocumentFormatJson,
	})
	if err != nil {
		var invalidDoc *ssmtypes.InvalidDocument
		if goerrors.As(err, &invalidDoc) {
			return nil, fmt.Errorf("%w: %s", errors.ErrDocumentNotFound, name)
		}

		var apiErr smithy.APIError
		if goerrors.As(err, &apiErr) {
			return nil, fmt.Errorf("failed to get document %s (%s): %w", name, apiErr.ErrorCode(), err)
		}
		return nil, fmt.Errorf("failed to get document %s: %w", name, err)
	}

	content := aws.ToString(result.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: %s", errors.ErrEmptyDocument, name)
	}

	decoded, err := document.Decode([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse content of document %s: %w", name, err)
	}

	return decoded, nil
}
