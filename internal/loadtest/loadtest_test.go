package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/avalia/internal/adapters/http/api"
	"github.com/okian/avalia/internal/adapters/remote"
	"github.com/okian/avalia/internal/adapters/repository"
	service "github.com/okian/avalia/internal/app"
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/types"
	"github.com/okian/avalia/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer() *httptest.Server {
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.NewMemoryKV())
	So(err, ShouldBeNil)
	svc := service.New(store, remote.Disabled{}, service.WithPasswordCost(bcrypt.MinCost))
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	srv := httptest.NewServer(mux)
	Reset(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:         baseURL,
		AdminPassword:   "admin",
		Groups:          3,
		MembersPerGroup: 2,
		Evaluators:      4,
		Workers:         3,
		Timeout:         5 * time.Second,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv := newServer()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When the load test runs", func() {
			cfg := testConfig(srv.URL)
			cfg.OutputFile = filepath.Join(t.TempDir(), "out", "evaluations.json")
			stats, err := Run(ctx, cfg)

			Convey("Then every evaluation is accepted and the ranking verifies", func() {
				So(err, ShouldBeNil)
				So(stats.GroupsCreated, ShouldEqual, 3)
				So(stats.MembersCreated, ShouldEqual, 6)
				So(stats.EvaluationsGenerated, ShouldEqual, 12)
				So(stats.EvaluationsCreated, ShouldEqual, 12)
				So(stats.EvaluationsFailed, ShouldEqual, 0)
				So(stats.RankedGroups, ShouldEqual, 3)
			})

			Convey("Then the stored evaluations are written out", func() {
				raw, err := os.ReadFile(cfg.OutputFile)
				So(err, ShouldBeNil)
				var evals []model.Evaluation
				So(json.Unmarshal(raw, &evals), ShouldBeNil)
				So(evals, ShouldHaveLength, 12)
			})
		})

		Convey("When the admin password is wrong", func() {
			cfg := testConfig(srv.URL)
			cfg.AdminPassword = "nope"
			_, err := Run(ctx, cfg)

			Convey("Then the run stops before creating anything", func() {
				var se *StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Status, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})

	Convey("Given an unusable configuration", t, func() {
		cfg := testConfig("http://localhost:0")
		cfg.Workers = 0
		_, err := Run(context.Background(), cfg)
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestVerifyRanking(t *testing.T) {
	Convey("Given two groups and their evaluations", t, func() {
		fx := &Fixture{
			Event:  model.Event{ID: "e1"},
			Groups: []model.Group{{ID: "g1", EventID: "e1"}, {ID: "g2", EventID: "e1"}},
		}
		stored := []model.Evaluation{
			{ID: "1", EventID: "e1", GroupID: "g1", Scores: map[string]float64{"c1": 4}},
			{ID: "2", EventID: "e1", GroupID: "g2", Scores: map[string]float64{"c1": 8}},
		}
		ranking := &types.Ranking{Entries: []types.RankEntry{
			{Rank: 1, Group: fx.Groups[1], Score: "8.0", EvaluationCount: 1},
			{Rank: 2, Group: fx.Groups[0], Score: "4.0", EvaluationCount: 1},
		}}
		ctx := context.Background()

		Convey("Then a matching ranking verifies", func() {
			So(verifyRanking(ctx, fx, stored, ranking, true), ShouldBeNil)
		})

		Convey("Then a wrong score is reported", func() {
			ranking.Entries[0].Score = "7.9"
			So(errors.Is(verifyRanking(ctx, fx, stored, ranking, false), ErrRankingMismatch), ShouldBeTrue)
		})

		Convey("Then a missing group is reported", func() {
			ranking.Entries = ranking.Entries[:1]
			So(errors.Is(verifyRanking(ctx, fx, stored, ranking, false), ErrRankingMismatch), ShouldBeTrue)
		})
	})
}

func TestGenerateScore(t *testing.T) {
	Convey("Generated scores stay inside the band and the accepted range", t, func() {
		for _, p := range profiles {
			for range 50 {
				v := generateScore(p)
				So(v, ShouldBeBetweenOrEqual, 0, 10)
				So(v, ShouldBeBetweenOrEqual, p.min, p.min+p.span)
			}
		}
	})
}
