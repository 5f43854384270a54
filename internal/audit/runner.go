// Package audit implements the batch loop that classifies SSM Automation
// documents by the script runtimes they declare.
package audit

import (
	"bufio"
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/savaki/ssm-runtime-audit/internal/arn"
	"github.com/savaki/ssm-runtime-audit/internal/document"
	"github.com/savaki/ssm-runtime-audit/internal/errors"
	"github.com/savaki/ssm-runtime-audit/internal/services"
)

// Input describes a single audit run.
type Input struct {
	InputFile   string
	OutputFile  string
	OldRuntimes []string
}

// Summary reports what a run processed and matched.
type Summary struct {
	Processed  int
	Matched    int
	OutputFile string
}

// Runner drives a single pass over the input ARN list. It owns a per-region
// cache of document services so a region's client is constructed at most
// once per run.
type Runner struct {
	factory services.ClientFactory
	clients map[string]services.DocumentService
}

// NewRunner creates a Runner using the given factory for region clients.
func NewRunner(factory services.ClientFactory) *Runner {
	return &Runner{
		factory: factory,
		clients: make(map[string]services.DocumentService),
	}
}

// Run reads ARNs from the input file, fetches and classifies each document,
// and writes the ARNs of documents using an outdated runtime to the output
// file in input order. Per-item problems are logged and skipped; only a
// missing input file, missing credentials, or an unwritable output file
// abort the run.
func (r *Runner) Run(ctx context.Context, input Input) (*Summary, error) {
	logger := zerolog.Ctx(ctx)

	logger.Info().
		Str("input_file", input.InputFile).
		Str("output_file", input.OutputFile).
		Strs("old_runtimes", input.OldRuntimes).
		Msg("Starting SSM document filtering")

	arns, err := readARNs(input.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", input.InputFile, err)
	}

	if len(arns) == 0 {
		logger.Info().Msg("Input file is empty, no documents to process")
		if err := writeLines(input.OutputFile, nil); err != nil {
			return nil, fmt.Errorf("failed to write output file %s: %w", input.OutputFile, err)
		}
		return &Summary{OutputFile: input.OutputFile}, nil
	}

	var matched []string
	processed := 0

	for _, raw := range arns {
		processed++
		logger.Debug().Str("arn", raw).Msg("Processing ARN")

		doc, err := arn.Parse(raw)
		if err != nil {
			logger.Warn().Str("arn", raw).Msg("Could not parse ARN, skipping")
			continue
		}

		svc, ok := r.clients[doc.Region]
		if !ok {
			logger.Debug().Str("region", doc.Region).Msg("Initializing SSM client")
			svc, err = r.factory.ForRegion(ctx, doc.Region)
			if err != nil {
				if goerrors.Is(err, errors.ErrMissingCredentials) {
					logger.Error().Err(err).Msg("AWS credentials not found or incomplete, aborting")
					return nil, err
				}
				// Not remembered as broken; the next ARN in this region
				// retries construction.
				logger.Error().Err(err).Str("region", doc.Region).Msg("Failed to initialize SSM client, skipping")
				continue
			}
			r.clients[doc.Region] = svc
		}

		content, err := svc.GetContent(ctx, doc.Name)
		if err != nil {
			if goerrors.Is(err, errors.ErrDocumentNotFound) || goerrors.Is(err, errors.ErrEmptyDocument) {
				logger.Warn().Err(err).Str("document", doc.Name).Msg("Skipping document")
			} else {
				logger.Error().Err(err).Str("document", doc.Name).Msg("Failed to fetch document, skipping")
			}
			continue
		}

		if document.UsesOutdatedRuntime(ctx, content, input.OldRuntimes) {
			logger.Info().Str("arn", raw).Msg("Found outdated runtime in document")
			matched = append(matched, raw)
		}
	}

	if err := writeLines(input.OutputFile, matched); err != nil {
		return nil, fmt.Errorf("failed to write output file %s: %w", input.OutputFile, err)
	}

	summary := &Summary{
		Processed:  processed,
		Matched:    len(matched),
		OutputFile: input.OutputFile,
	}

	logger.Info().
		Int("processed", summary.Processed).
		Int("matched", summary.Matched).
		Str("output_file", summary.OutputFile).
		Msg("SSM document filtering complete")

	return summary, nil
}

// readARNs returns the trimmed, non-blank lines of the input file in order.
func readARNs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var arns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		arns = append(arns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return arns, nil
}

// writeLines truncates path and writes one line per entry, newline
// terminated. A nil slice produces an empty file.
func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
