package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/avalia/internal/loadtest"
	"github.com/okian/avalia/pkg/logger"
)

// Default configuration constants.
const (
	defaultGroups      = 20
	defaultMembers     = 4
	defaultEvaluators  = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		password   = flag.String("password", "admin", "Admin password")
		groups     = flag.Int("groups", defaultGroups, "Number of groups to create")
		members    = flag.Int("members", defaultMembers, "Members per group")
		evaluators = flag.Int("evaluators", defaultEvaluators, "Evaluators; each scores every group once")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for submitted evaluations (default: evaluations_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: loadtest_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	logPath, err := loadtest.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *outputFile == "" {
		*outputFile = "evaluations_" + time.Now().Format("20060102_150405") + ".json"
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:         *baseURL,
		AdminPassword:   *password,
		Groups:          *groups,
		MembersPerGroup: *members,
		Evaluators:      *evaluators,
		Workers:         *workers,
		Timeout:         *timeout,
		OutputFile:      *outputFile,
		LogFile:         logPath,
		Verbose:         *verbose,
	}

	if _, err := loadtest.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "test failed", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
