package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/savaki/ssm-runtime-audit/cmd/ssm-runtime-audit/commands"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "ssm-runtime-audit",
		Usage: "Audit SSM Automation documents for outdated script runtimes",
		Description: `Inventories AWS Systems Manager Automation documents by ARN and flags the
ones whose aws:executeScript steps declare a deprecated Python runtime.

Reads one document ARN per line from the input file, fetches each document's
JSON definition from the region named in its ARN, and writes the ARNs of
matching documents to the output file.`,
		Commands: []*cli.Command{
			commands.FilterCommand(),
		},
		DefaultCommand: "filter",
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
