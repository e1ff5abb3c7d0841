package loadtest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/pkg/logger"
)

// submitEvaluations posts submissions concurrently and returns the
// evaluations the service stored.
func submitEvaluations(ctx context.Context, client *HTTPClient, config *Config, eventID string, subs []Submission, stats *Stats) []model.Evaluation {
	log := logger.Get()
	log.Info(ctx, "submitting evaluations", logger.Int("count", len(subs)), logger.Int("workers", config.Workers))

	path := "/events/" + eventID + "/evaluations"

	var (
		created   int64
		updated   int64
		failed    int64
		submitted int64

		mu     sync.Mutex
		stored = make([]model.Evaluation, 0, len(subs))
	)

	var lastReport atomic.Int64

	subChan := make(chan Submission, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for sub := range subChan {
				if ctx.Err() != nil {
					return
				}

				var resp submissionResponse
				status, err := client.Do(ctx, http.MethodPost, path, sub, &resp, http.StatusCreated, http.StatusOK)
				atomic.AddInt64(&submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						var se *StatusError
						if errors.As(err, &se) {
							log.Warn(ctx, "evaluation rejected", logger.Int("status", se.Status), logger.String("body", se.Body))
						} else {
							log.Warn(ctx, "evaluation failed", logger.Error(err))
						}
					}
					continue
				case status == http.StatusOK:
					atomic.AddInt64(&updated, 1)
				default:
					atomic.AddInt64(&created, 1)
				}

				mu.Lock()
				stored = append(stored, resp.Evaluation)
				mu.Unlock()

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if time.Duration(now-last) >= ProgressInterval && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "submission progress",
						logger.Int("submitted", int(atomic.LoadInt64(&submitted))),
						logger.Int("total", len(subs)),
						logger.Int("failed", int(atomic.LoadInt64(&failed))))
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.EvaluationsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EvaluationsCreated = int(atomic.LoadInt64(&created))
	stats.EvaluationsUpdated = int(atomic.LoadInt64(&updated))
	stats.EvaluationsFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "evaluation submission completed",
		logger.Int("created", stats.EvaluationsCreated),
		logger.Int("updated", stats.EvaluationsUpdated),
		logger.Int("failed", stats.EvaluationsFailed))
	return stored
}
