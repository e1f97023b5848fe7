// Package cli parses command line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/runbookgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// inputFlags collects repeatable --input key=value pairs in order.
type inputFlags []string

func (f *inputFlags) String() string {
	return strings.Join(*f, ",")
}

func (f *inputFlags) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("runbookgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
runbookgo - a declarative runbook execution engine.

Usage:
  runbookgo [options] [RUNBOOK_PATH]

Arguments:
  RUNBOOK_PATH
    Path to a single .tx file or a directory containing .tx files.

Options:
`)
		flagSet.PrintDefaults()
	}

	runbookFlag := flagSet.String("runbook", "", "Path to the runbook file or directory.")
	rFlag := flagSet.String("r", "", "Path to the runbook file or directory (shorthand).")
	nameFlag := flagSet.String("name", "", "Name for the run. Defaults to the path base.")
	manifestFlag := flagSet.String("manifest", "", "Path to the workspace manifest.")
	envFlag := flagSet.String("env", "", "Manifest environment supplying top-level inputs.")
	checkFlag := flagSet.Bool("check", false, "Validate the sources without executing.")
	unsupervisedFlag := flagSet.Bool("unsupervised", false, "Run without prompting; auto-approvable action items are accepted, the rest fail.")
	snapshotFlag := flagSet.String("snapshot", "", "Write a run snapshot to this path.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	var inputs inputFlags
	flagSet.Var(&inputs, "input", "Top-level input as key=value. Repeatable.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *runbookFlag != "" {
		path = *runbookFlag
	} else if *rFlag != "" {
		path = *rFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Debug("No runbook path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		RunbookPath:  path,
		RunbookName:  *nameFlag,
		ManifestPath: *manifestFlag,
		Environment:  *envFlag,
		Inputs:       inputs,
		CheckOnly:    *checkFlag,
		Unsupervised: *unsupervisedFlag,
		SnapshotPath: *snapshotFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
