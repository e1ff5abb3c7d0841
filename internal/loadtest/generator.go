package loadtest

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/pkg/logger"
)

const randomFloatDivisor = 1000000

// profile is the score band a group tends to receive.
type profile struct {
	min, span float64
}

// Bands from weakest to strongest; average groups are listed twice so they
// come up most often.
var profiles = []profile{
	{min: 0.5, span: 2.5}, // low
	{min: 3.0, span: 4.0}, // average
	{min: 3.0, span: 4.0}, // average
	{min: 6.0, span: 2.0}, // mid-high
	{min: 7.0, span: 2.0}, // high
	{min: 9.0, span: 1.0}, // elite
}

// commentEvery controls how often an evaluator leaves a group comment.
const commentEvery = 5

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateSubmissions builds one submission per evaluator and group.
func generateSubmissions(ctx context.Context, config *Config, fx *Fixture, stats *Stats) []Submission {
	bands := make(map[string]profile, len(fx.Groups))
	for _, g := range fx.Groups {
		bands[g.ID] = profiles[randomIndex(len(profiles))]
	}

	evaluators := make([]string, config.Evaluators)
	for i := range evaluators {
		evaluators[i] = "Evaluator " + uuid.NewString()[:8]
	}

	subs := make([]Submission, 0, len(evaluators)*len(fx.Groups))
	for i, name := range evaluators {
		for _, g := range fx.Groups {
			subs = append(subs, generateSingleSubmission(i, name, g, fx.Criteria, bands[g.ID]))
		}
	}

	stats.EvaluationsGenerated = len(subs)
	logger.Get().Info(ctx, "generated evaluations", logger.Int("count", len(subs)))
	return subs
}

func generateSingleSubmission(index int, evaluator string, g model.Group, criteria []model.Criterion, band profile) Submission {
	sub := Submission{
		GroupID:       g.ID,
		EvaluatorName: evaluator,
		Scores:        make(map[string]float64, len(criteria)),
	}
	for _, c := range criteria {
		sub.Scores[c.ID] = generateScore(band)
	}
	if len(g.Members) > 0 {
		sub.IndividualScores = make(map[string]float64, len(g.Members))
		for _, m := range g.Members {
			sub.IndividualScores[m.ID] = generateScore(band)
		}
	}
	if index%commentEvery == 0 {
		sub.GroupComment = "Feedback from " + evaluator + " for " + g.Name
	}
	return sub
}

// generateScore draws a score within band, kept inside the accepted range
// and rounded to one decimal.
func generateScore(band profile) float64 {
	v := band.min + getRandomFloat()*band.span
	v = math.Max(0, math.Min(10, v))
	return math.Round(v*10) / 10
}
