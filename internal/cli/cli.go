package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/pyworks/internal/app"
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

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pyworks", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
PyWorks - A node-based workflow runner for Python projects.

Usage:
  pyworks [options] [PROJECT_PATH]

Arguments:
  PROJECT_PATH
    Path to a workflow project directory (contains nodes/ and a layout file).

Options:
`)
		flagSet.PrintDefaults()
	}

	projectFlag := flagSet.String("project", "", "Path to the workflow project directory.")
	pFlag := flagSet.String("p", "", "Path to the workflow project directory (shorthand).")
	layoutFlag := flagSet.String("layout", "", "Layout file path. Overrides the project manifest.")
	interpreterFlag := flagSet.String("interpreter", "", "Python interpreter path. Overrides manifest and .venv lookup.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Maximum duration for a workflow run. 0 disables the limit.")
	installFlag := flagSet.Bool("install", false, "Install requirements.txt into the project's .venv before running.")
	listNodesFlag := flagSet.Bool("list-nodes", false, "Discover and print the node catalog, then exit.")
	validateFlag := flagSet.Bool("validate", false, "Build and cycle-check the workflow graphs without running.")
	newFlag := flagSet.Bool("new", false, "Scaffold a new project at PROJECT_PATH, then exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *projectFlag != "" {
		path = *projectFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Project path determined.", "path", path)

	if path == "" {
		slog.Debug("No project path provided, printing usage and exiting.")
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

	if *timeoutFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid timeout: must not be negative"}
	}

	modes := 0
	for _, on := range []bool{*listNodesFlag, *validateFlag, *newFlag} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return nil, false, &ExitError{Code: 2, Message: "at most one of -list-nodes, -validate, -new may be set"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ProjectPath:  path,
		LayoutPath:   *layoutFlag,
		Interpreter:  *interpreterFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Timeout:      *timeoutFlag,
		InstallDeps:  *installFlag,
		ListNodes:    *listNodesFlag,
		ValidateOnly: *validateFlag,
		NewProject:   *newFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
