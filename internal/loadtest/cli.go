package loadtest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/okian/avalia/pkg/logger"
)

// SetupLogging writes JSON logs to both stdout and logFile.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (string, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "loadtest_" + timestamp + ".log"
	}

	if err := logger.Init(logger.WithFormat("console"), logger.WithOutputPaths("stdout", logFile)); err != nil {
		return "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return logFile, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Avalia Load Test Tool
=====================

Creates an event with groups and members through the admin API, submits
evaluations concurrently, then checks the admin ranking against scores
computed from the submitted evaluations.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -password string
        Admin password (default "admin")
  -groups int
        Number of groups to create (default 20)
  -members int
        Members per group (default 4)
  -evaluators int
        Evaluators; each scores every group once (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for submitted evaluations (default: evaluations_TIMESTAMP.json)
  -log string
        Log file for test output (default: loadtest_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run ./cmd/loadtest

  # Larger run against another instance
  go run ./cmd/loadtest -groups 100 -evaluators 200 -url http://localhost:8080
`)
}
