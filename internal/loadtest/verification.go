package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/scoring"
	"github.com/okian/avalia/internal/domain/types"
	"github.com/okian/avalia/pkg/logger"
)

// ErrRankingMismatch is returned when the served ranking disagrees with the
// submitted evaluations.
var ErrRankingMismatch = errors.New("ranking mismatch")

const topPerformers = 10

// getRanking retrieves the admin ranking for the event.
func getRanking(ctx context.Context, client *HTTPClient, eventID string, stats *Stats) (*types.Ranking, error) {
	var ranking types.Ranking
	if _, err := client.Do(ctx, http.MethodGet, "/admin/events/"+eventID+"/ranking", nil, &ranking, http.StatusOK); err != nil {
		return nil, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	stats.RankedGroups = len(ranking.Entries)
	logger.Get().Info(ctx, "retrieved ranking", logger.Int("entries", len(ranking.Entries)))
	return &ranking, nil
}

// verifyRanking recomputes every group score from the stored evaluations and
// compares it with what the service served.
func verifyRanking(ctx context.Context, fx *Fixture, stored []model.Evaluation, ranking *types.Ranking, verbose bool) error {
	logger.Get().Info(ctx, "verifying ranking")

	if len(ranking.Entries) != len(fx.Groups) {
		return fmt.Errorf("%w: %d entries for %d groups", ErrRankingMismatch, len(ranking.Entries), len(fx.Groups))
	}

	expected := make(map[string]scoring.Ranked, len(fx.Groups))
	for _, r := range scoring.Rank(fx.Groups, stored, fx.Event.ID) {
		expected[r.Group.ID] = r
	}
	counts := make(map[string]int, len(fx.Groups))
	for _, e := range stored {
		counts[e.GroupID]++
	}

	var prev float64
	for i, entry := range ranking.Entries {
		want, ok := expected[entry.Group.ID]
		if !ok {
			return fmt.Errorf("%w: unexpected group %s", ErrRankingMismatch, entry.Group.ID)
		}
		if entry.Score != want.Score {
			return fmt.Errorf("%w: group %s scored %s, expected %s", ErrRankingMismatch, entry.Group.ID, entry.Score, want.Score)
		}
		if entry.EvaluationCount != counts[entry.Group.ID] {
			return fmt.Errorf("%w: group %s has %d evaluations, expected %d",
				ErrRankingMismatch, entry.Group.ID, entry.EvaluationCount, counts[entry.Group.ID])
		}
		if entry.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrRankingMismatch, i, entry.Rank)
		}
		score, err := strconv.ParseFloat(entry.Score, 64)
		if err != nil {
			return fmt.Errorf("%w: group %s score %q: %w", ErrRankingMismatch, entry.Group.ID, entry.Score, err)
		}
		if i > 0 && score > prev {
			return fmt.Errorf("%w: entry %d outranks entry %d", ErrRankingMismatch, i, i-1)
		}
		prev = score
	}

	displayTopPerformers(ctx, ranking, verbose)
	logger.Get().Info(ctx, "ranking verified")
	return nil
}

// displayTopPerformers logs the head of the ranking.
func displayTopPerformers(ctx context.Context, ranking *types.Ranking, verbose bool) {
	log := logger.Get()
	n := min(topPerformers, len(ranking.Entries))
	for _, entry := range ranking.Entries[:n] {
		fields := []logger.Field{
			logger.Int("rank", entry.Rank),
			logger.String("group", entry.Group.Name),
			logger.String("score", entry.Score),
		}
		if verbose {
			fields = append(fields,
				logger.Int("evaluations", entry.EvaluationCount),
				logger.Int("comments", len(entry.Comments)))
		}
		log.Info(ctx, "top group", fields...)
	}
}
