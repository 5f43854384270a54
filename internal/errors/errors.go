package errors

import "errors"

var (
	ErrInvalidARN         = errors.New("not a valid SSM document ARN")
	ErrDocumentNotFound   = errors.New("document not found or invalid")
	ErrEmptyDocument      = errors.New("document has no content")
	ErrMissingCredentials = errors.New("AWS credentials not found or incomplete")
)
