package commands

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/savaki/ssm-runtime-audit/internal/audit"
	"github.com/savaki/ssm-runtime-audit/internal/config"
	"github.com/savaki/ssm-runtime-audit/internal/di"
	"github.com/urfave/cli/v2"
)

// FilterCommand returns the filter command, which runs a single audit pass
// over the input ARN list.
func FilterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Filter SSM Automation documents using outdated script runtimes",
		Description: `Reads SSM document ARNs from the input file (one per line, blank lines
ignored), fetches each document's content from the region in its ARN, and
writes the ARNs of documents whose aws:executeScript steps declare a
denylisted runtime to the output file, preserving input order.

Unparseable ARNs, missing documents, and per-document fetch failures are
logged and skipped. A missing input file, missing AWS credentials, or an
unwritable output file aborts the run.

Exit codes:
  0  run completed (with or without matches)
  1  fatal runtime failure
  2  AWS SDK configuration unavailable at startup

Examples:
  # Audit with defaults
  ssm-runtime-audit filter

  # Custom file locations and denylist
  ssm-runtime-audit filter \
    --input-file arns.txt \
    --output-file flagged.txt \
    --old-runtimes "python2.7,python3.6"

  # Verbose run with defaults from a config file
  ssm-runtime-audit filter --config audit.yaml --log-level DEBUG`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input-file",
				Aliases: []string{"i"},
				Usage:   "File containing SSM document ARNs, one per line",
				Value:   config.DefaultInputFile,
				EnvVars: []string{"INPUT_FILE"},
			},
			&cli.StringFlag{
				Name:    "output-file",
				Aliases: []string{"o"},
				Usage:   "File to write matching ARNs to (overwritten each run)",
				Value:   config.DefaultOutputFile,
				EnvVars: []string{"OUTPUT_FILE"},
			},
			&cli.StringFlag{
				Name:    "old-runtimes",
				Aliases: []string{"r"},
				Usage:   "Comma-separated list of runtimes to consider outdated",
				Value:   strings.Join(config.DefaultOldRuntimes, ","),
				EnvVars: []string{"OLD_RUNTIMES"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (DEBUG, INFO, WARNING, ERROR, or CRITICAL)",
				Value:   config.DefaultLogLevel,
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Optional YAML file supplying defaults for the flags above",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Action: filterAction,
	}
}

func filterAction(c *cli.Context) error {
	input, logLevel, err := resolveRunInput(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	level, err := config.ParseLogLevel(logLevel)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := di.ProvideLogger(level)
	ctx := logger.WithContext(c.Context)

	// The AWS config is the startup precondition; load it before the run
	// begins so its absence maps to a distinct exit code.
	awsConfig, err := di.ProvideAWSConfig(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("AWS SDK configuration unavailable: %v", err), 2)
	}

	container, err := di.New(ctx,
		di.WithProviders(func() aws.Config { return awsConfig }),
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to build dependencies: %v", err), 1)
	}

	var summary *audit.Summary
	err = container.Invoke(func(runner *audit.Runner) error {
		var runErr error
		summary, runErr = runner.Run(ctx, input)
		return runErr
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("Processed %d documents, found %d with outdated runtimes\n", summary.Processed, summary.Matched)
	fmt.Printf("Filtered list saved to %s\n", summary.OutputFile)
	return nil
}

// resolveRunInput layers values: explicit flags win, then the optional YAML
// config file, then the built-in defaults already set as flag values.
func resolveRunInput(c *cli.Context) (audit.Input, string, error) {
	input := audit.Input{
		InputFile:   c.String("input-file"),
		OutputFile:  c.String("output-file"),
		OldRuntimes: config.ParseRuntimes(c.String("old-runtimes")),
	}
	logLevel := c.String("log-level")

	configPath := c.String("config")
	if configPath == "" {
		return input, logLevel, nil
	}

	file, err := config.Load(configPath)
	if err != nil {
		return audit.Input{}, "", err
	}

	if !c.IsSet("input-file") && file.InputFile != "" {
		input.InputFile = file.InputFile
	}
	if !c.IsSet("output-file") && file.OutputFile != "" {
		input.OutputFile = file.OutputFile
	}
	if !c.IsSet("old-runtimes") && len(file.OldRuntimes) > 0 {
		input.OldRuntimes = file.OldRuntimes
	}
	if !c.IsSet("log-level") && file.LogLevel != "" {
		logLevel = file.LogLevel
	}

	return input, logLevel, nil
}
