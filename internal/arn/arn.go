// Package arn parses Amazon Resource Names for SSM documents.
package arn

import (
	"fmt"
	"regexp"

	"github.com/savaki/ssm-runtime-audit/internal/errors"
)

// documentRE matches SSM document ARNs of the form
// arn:aws:ssm:{region}:{account_id}:document/{name}. The name capture is
// greedy to end of string because document names may contain slashes.
var documentRE = regexp.MustCompile(`^arn:aws:ssm:(?P<region>[^:]+):(?P<account_id>[^:]+):document/(?P<name>.*)$`)

// Document identifies an SSM document by region and name. The account id
// is matched but not retained.
type Document struct {
	Region string
	Name   string
}

// Parse extracts the region and document name from an SSM document ARN.
// Anything that does not match the full ARN shape returns ErrInvalidARN;
// there is no partial extraction.
func Parse(s string) (Document, error) {
	m := documentRE.FindStringSubmatch(s)
	if m == nil {
		return Document{}, fmt.Errorf("%w: %q", errors.ErrInvalidARN, s)
	}

	return Document{
		Region: m[documentRE.SubexpIndex("region")],
		Name:   m[documentRE.SubexpIndex("name")],
	}, nil
}
