package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/savaki/ssm-runtime-audit/internal/document"
	apperrors "github.com/savaki/ssm-runtime-audit/internal/errors"
	"github.com/savaki/ssm-runtime-audit/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRuntimes = []string{"python3.9", "python3.8", "python3.7", "python3.6", "python2.7"}

// fakeDocumentService serves canned document bodies by name.
type fakeDocumentService struct {
	docs    map[string]string
	fetches []string
}

func (f *fakeDocumentService) GetContent(ctx context.Context, name string) (*document.Content, error) {
	f.fetches = append(f.fetches, name)
	raw, ok := f.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, name)
	}
	content, err := document.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse content of document %s: %w", name, err)
	}
	return content, nil
}

// fakeFactory returns one shared fake service per region and counts
// construction attempts.
type fakeFactory struct {
	services map[string]*fakeDocumentService
	errs     map[string]error
	built    map[string]int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		services: make(map[string]*fakeDocumentService),
		errs:     make(map[string]error),
		built:    make(map[string]int),
	}
}

func (f *fakeFactory) withDocs(region string, docs map[string]string) *fakeFactory {
	f.services[region] = &fakeDocumentService{docs: docs}
	return f
}

func (f *fakeFactory) ForRegion(ctx context.Context, region string) (services.DocumentService, error) {
	f.built[region]++
	if err := f.errs[region]; err != nil {
		return nil, err
	}
	svc, ok := f.services[region]
	if !ok {
		svc = &fakeDocumentService{}
		f.services[region] = svc
	}
	return svc, nil
}

func writeInput(t *testing.T, lines ...string) (inputFile, outputFile string) {
	t.Helper()
	dir := t.TempDir()
	inputFile = filepath.Join(dir, "input.txt")
	outputFile = filepath.Join(dir, "output.txt")

	data := ""
	for _, line := range lines {
		data += line + "\n"
	}
	require.NoError(t, os.WriteFile(inputFile, []byte(data), 0o644))
	return inputFile, outputFile
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const (
	outdatedDoc = `{"mainSteps":[{"name":"run","action":"aws:executeScript","inputs":{"Runtime":"python3.7"}}]}`
	currentDoc  = `{"mainSteps":[{"name":"run","action":"aws:executeScript","inputs":{"Runtime":"python3.11"}}]}`
	noScriptDoc = `{"mainSteps":[{"name":"wait","action":"aws:sleep","inputs":{"Duration":"PT5M"}}]}`
)

func TestRunFiltersOutdatedDocuments(t *testing.T) {
	factory := newFakeFactory().withDocs("us-east-1", map[string]string{
		"OldDoc":     outdatedDoc,
		"CurrentDoc": currentDoc,
		"SleepDoc":   noScriptDoc,
	})

	inputFile, outputFile := writeInput(t,
		"arn:aws:ssm:us-east-1:123456789012:document/OldDoc",
		"arn:aws:ssm:us-east-1:123456789012:document/CurrentDoc",
		"arn:aws:ssm:us-east-1:123456789012:document/SleepDoc",
	)

	summary, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Matched)

	assert.Equal(t, "arn:aws:ssm:us-east-1:123456789012:document/OldDoc\n", readOutput(t, outputFile))
}

func TestRunPreservesInputOrder(t *testing.T) {
	factory := newFakeFactory().
		withDocs("us-west-2", map[string]string{"B": outdatedDoc}).
		withDocs("us-east-1", map[string]string{"A": outdatedDoc, "C": outdatedDoc})

	a := "arn:aws:ssm:us-east-1:123456789012:document/A"
	b := "arn:aws:ssm:us-west-2:123456789012:document/B"
	c := "arn:aws:ssm:us-east-1:123456789012:document/C"
	inputFile, outputFile := writeInput(t, a, b, c)

	summary, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Matched)
	assert.Equal(t, a+"\n"+b+"\n"+c+"\n", readOutput(t, outputFile))
}

func TestRunCachesClientsPerRegion(t *testing.T) {
	factory := newFakeFactory().withDocs("us-east-1", map[string]string{
		"A": currentDoc,
		"B": currentDoc,
	})

	inputFile, outputFile := writeInput(t,
		"arn:aws:ssm:us-east-1:123456789012:document/A",
		"arn:aws:ssm:us-east-1:123456789012:document/B",
	)

	_, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, factory.built["us-east-1"])
}

func TestRunSkipsMalformedARN(t *testing.T) {
	factory := newFakeFactory().withDocs("us-east-1", map[string]string{"OldDoc": outdatedDoc})

	inputFile, outputFile := writeInput(t,
		"not-an-arn",
		"arn:aws:ssm:us-east-1:123456789012:document/OldDoc",
	)

	summary, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, "arn:aws:ssm:us-east-1:123456789012:document/OldDoc\n", readOutput(t, outputFile))
}

func TestRunSkipsMissingDocument(t *testing.T) {
	factory := newFakeFactory().withDocs("us-east-1", map[string]string{"OldDoc": outdatedDoc})

	inputFile, outputFile := writeInput(t,
		"arn:aws:ssm:us-east-1:123456789012:document/Ghost",
		"arn:aws:ssm:us-east-1:123456789012:document/OldDoc",
	)

	summary, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Matched)
}

func TestRunAbortsOnMissingCredentials(t *testing.T) {
	factory := newFakeFactory()
	factory.errs["us-east-1"] = fmt.Errorf("%w: no providers in chain", apperrors.ErrMissingCredentials)

	inputFile, outputFile := writeInput(t,
		"arn:aws:ssm:us-east-1:123456789012:document/A",
		"arn:aws:ssm:us-east-1:123456789012:document/B",
	)

	_, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingCredentials)

	// Aborted before the second ARN could retry construction.
	assert.Equal(t, 1, factory.built["us-east-1"])
	assert.NoFileExists(t, outputFile)
}

func TestRunRetriesRegionAfterTransientFactoryFailure(t *testing.T) {
	factory := newFakeFactory()
	factory.errs["us-east-1"] = errors.New("endpoint resolution failed")

	inputFile, outputFile := writeInput(t,
		"arn:aws:ssm:us-east-1:123456789012:document/A",
		"arn:aws:ssm:us-east-1:123456789012:document/B",
	)

	summary, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Matched)

	// Each ARN in the broken region re-attempts client construction.
	assert.Equal(t, 2, factory.built["us-east-1"])
	assert.Equal(t, "", readOutput(t, outputFile))
}

func TestRunEmptyInput(t *testing.T) {
	inputFile, outputFile := writeInput(t, "", "   ", "")

	summary, err := NewRunner(newFakeFactory()).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		OldRuntimes: testRuntimes,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Matched)
	assert.Equal(t, "", readOutput(t, outputFile))
}

func TestRunMissingInputFile(t *testing.T) {
	dir := t.TempDir()

	_, err := NewRunner(newFakeFactory()).Run(context.Background(), Input{
		InputFile:   filepath.Join(dir, "does-not-exist.txt"),
		OutputFile:  filepath.Join(dir, "output.txt"),
		OldRuntimes: testRuntimes,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunUnwritableOutput(t *testing.T) {
	factory := newFakeFactory().withDocs("us-east-1", map[string]string{"OldDoc": outdatedDoc})

	inputFile, _ := writeInput(t, "arn:aws:ssm:us-east-1:123456789012:document/OldDoc")

	_, err := NewRunner(factory).Run(context.Background(), Input{
		InputFile:   inputFile,
		OutputFile:  filepath.Join(t.TempDir(), "missing", "output.txt"),
		OldRuntimes: testRuntimes,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write output file")
}

func TestRunIsIdempotent(t *testing.T) {
	docs := map[string]string{"OldDoc": outdatedDoc, "CurrentDoc": currentDoc}

	inputFile, outputFile := writeInput(t,
		"arn:aws:ssm:us-east-1:123456789012:document/OldDoc",
		"arn:aws:ssm:us-east-1:123456789012:document/CurrentDoc",
	)

	input := Input{InputFile: inputFile, OutputFile: outputFile, OldRuntimes: testRuntimes}

	_, err := NewRunner(newFakeFactory().withDocs("us-east-1", docs)).Run(context.Background(), input)
	require.NoError(t, err)
	first := readOutput(t, outputFile)

	_, err = NewRunner(newFakeFactory().withDocs("us-east-1", docs)).Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first, readOutput(t, outputFile))
}
