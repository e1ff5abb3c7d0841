// Package loadtest drives a running service through its HTTP API: it builds
// an event, submits evaluations concurrently and checks the served ranking.
package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrInvalidConfig is returned by Run for unusable settings.
var ErrInvalidConfig = errors.New("invalid load test config")

// Run executes the complete load test.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := validate(config); err != nil {
		return nil, err
	}

	stats := &Stats{
		StartTime: time.Now(),
	}
	client := newHTTPClient(config)

	logger.Get().Info(ctx, "starting avalia load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("groups", config.Groups),
		logger.Int("membersPerGroup", config.MembersPerGroup),
		logger.Int("evaluators", config.Evaluators),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health and credentials
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	if err := login(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Build the event
	fx, err := createFixture(ctx, client, config, stats)
	if err != nil {
		return stats, fmt.Errorf("fixture setup failed: %w", err)
	}

	// Step 3: Generate and submit evaluations
	subs := generateSubmissions(ctx, config, fx, stats)
	stored := submitEvaluations(ctx, client, config, fx.Event.ID, subs, stats)

	// Step 4: Retrieve and verify the ranking
	ranking, err := getRanking(ctx, client, fx.Event.ID, stats)
	if err != nil {
		return stats, err
	}
	if err := verifyRanking(ctx, fx, stored, ranking, config.Verbose); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 5: Save evaluations to file
	if config.OutputFile != "" {
		if err := saveEvaluationsToFile(ctx, config.OutputFile, stored); err != nil {
			logger.Get().Warn(ctx, "failed to save evaluations to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "test completed successfully")
	return stats, nil
}

func validate(config *Config) error {
	switch {
	case config.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case config.Groups <= 0 || config.Evaluators <= 0 || config.Workers <= 0:
		return fmt.Errorf("%w: groups, evaluators and workers must be positive", ErrInvalidConfig)
	case config.MembersPerGroup < 0:
		return fmt.Errorf("%w: members must not be negative", ErrInvalidConfig)
	}
	return nil
}

// saveEvaluationsToFile writes the stored evaluations as a JSON array.
func saveEvaluationsToFile(ctx context.Context, filename string, evals []model.Evaluation) error {
	if len(evals) == 0 {
		return fmt.Errorf("no evaluations to save")
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	raw, err := json.MarshalIndent(evals, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal evaluations: %w", err)
	}
	if err := os.WriteFile(filename, raw, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "evaluations saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, evaluationsPerSecond float64

	if stats.EvaluationsSubmitted > 0 {
		ok := stats.EvaluationsCreated + stats.EvaluationsUpdated
		successRate = float64(ok) / float64(stats.EvaluationsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		evaluationsPerSecond = float64(stats.EvaluationsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("groupsCreated", stats.GroupsCreated),
		logger.Int("membersCreated", stats.MembersCreated),
		logger.Int("evaluationsGenerated", stats.EvaluationsGenerated),
		logger.Int("evaluationsSubmitted", stats.EvaluationsSubmitted),
		logger.Int("evaluationsCreated", stats.EvaluationsCreated),
		logger.Int("evaluationsUpdated", stats.EvaluationsUpdated),
		logger.Int("evaluationsFailed", stats.EvaluationsFailed),
		logger.Int("rankedGroups", stats.RankedGroups),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("evaluationsPerSecond", evaluationsPerSecond))
}
