package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/avalia/internal/adapters/remote/redisstore"
	"github.com/okian/avalia/internal/adapters/repository"
	service "github.com/okian/avalia/internal/app"
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/notice"
	"github.com/okian/avalia/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_RedisSync(t *testing.T) {
	ctx := context.Background()

	Convey("Given a redis remote holding a structure and a password", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		Reset(func() { _ = client.Close() })

		seed := redisstore.New(client, "avalia")
		st := model.Structure{
			Events:   []model.Event{{ID: "e1", Name: "Demo Day", Date: "2025-03-15"}},
			Groups:   []model.Group{{ID: "g1", EventID: "e1", Name: "Rockets", Members: []model.Member{}}},
			Criteria: []model.Criterion{{ID: "c1", EventID: "e1", Name: "Pitch", Weight: 1}},
		}
		So(seed.PushStructure(ctx, st), ShouldBeNil)
		So(seed.SaveAdminPassword(ctx, "remote-pw"), ShouldBeNil)

		store, err := repository.Open(ctx, repository.NewMemoryKV())
		So(err, ShouldBeNil)
		svc := service.New(store, redisstore.New(client, "avalia"),
			service.WithClock(func() time.Time { return testNow }),
			service.WithPasswordCost(bcrypt.MinCost),
			service.WithRemoteTimeout(time.Second),
			service.WithWorkerCount(2),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(context.Background()) })

		Convey("Then bootstrap pulls the remote state in", func() {
			So(store.Events(), ShouldHaveLength, 1)
			So(svc.Authenticate("remote-pw"), ShouldBeNil)
			So(svc.SyncStatus().Backend, ShouldEqual, "redis")
			So(svc.SyncStatus().State, ShouldEqual, "ready")
		})

		Convey("When an evaluation is submitted", func() {
			saved, _, err := svc.SubmitEvaluation(ctx, service.EvaluationInput{
				EventID: "e1", GroupID: "g1", EvaluatorName: "Ana",
				Scores: map[string]float64{"c1": 9},
			})
			So(err, ShouldBeNil)

			Convey("Then it reaches the remote hash", func() {
				So(eventually(func() bool {
					return mr.Exists("avalia:evaluations") && mr.HGet("avalia:evaluations", model.FlatKey(saved)) != ""
				}), ShouldBeTrue)

				var rec model.EvaluationRecord
				So(json.Unmarshal([]byte(mr.HGet("avalia:evaluations", model.FlatKey(saved))), &rec), ShouldBeNil)
				So(rec.Scores["c1"], ShouldEqual, 9)
				So(rec.SyncedAt, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a group is added", func() {
			_, err := svc.AddGroup(ctx, "e1", "Comets", "")
			So(err, ShouldBeNil)

			Convey("Then the structure document is replaced", func() {
				So(eventually(func() bool {
					raw, err := mr.Get("avalia:" + "app/structure")
					if err != nil {
						return false
					}
					var doc model.StructureDocument
					return json.Unmarshal([]byte(raw), &doc) == nil && len(doc.Groups) == 2
				}), ShouldBeTrue)
			})
		})

		Convey("When the remote goes away and an evaluation is submitted", func() {
			mr.Close()
			_, _, err := svc.SubmitEvaluation(ctx, service.EvaluationInput{
				EventID: "e1", GroupID: "g1", EvaluatorName: "Bo",
			})

			Convey("Then the local write succeeds and a notice is raised", func() {
				So(err, ShouldBeNil)
				So(store.Evaluations(), ShouldHaveLength, 1)
				So(eventually(func() bool {
					for _, n := range svc.Notices(0, 0) {
						if n.Kind == notice.EvaluationPushFailed {
							return true
						}
					}
					return false
				}), ShouldBeTrue)
			})
		})
	})

	Convey("Given a redis remote that is unreachable at startup", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		Reset(func() { _ = client.Close() })
		mr.Close()

		store, err := repository.Open(ctx, repository.NewMemoryKV())
		So(err, ShouldBeNil)
		svc := service.New(store, redisstore.New(client, "avalia"),
			service.WithPasswordCost(bcrypt.MinCost),
			service.WithRemoteTimeout(time.Second),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(context.Background()) })

		Convey("Then the service degrades to local data with one notice", func() {
			So(svc.SyncStatus().State, ShouldEqual, "ready")
			notices := svc.Notices(0, 0)
			So(notices, ShouldHaveLength, 1)
			So(notices[0].Kind, ShouldEqual, notice.BootstrapFailed)
			So(svc.Authenticate("admin"), ShouldBeNil)
		})
	})
}

func TestService_WritesBeforeStart(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service whose remote holds a structure and which has not started", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		Reset(func() { _ = client.Close() })

		seed := redisstore.New(client, "avalia")
		So(seed.PushStructure(ctx, model.Structure{
			Events: []model.Event{{ID: "remote", Name: "Remote Day", Date: "2025-03-15"}},
		}), ShouldBeNil)

		store, err := repository.Open(ctx, repository.NewMemoryKV())
		So(err, ShouldBeNil)
		svc := service.New(store, redisstore.New(client, "avalia"),
			service.WithClock(func() time.Time { return testNow }),
			service.WithPasswordCost(bcrypt.MinCost),
			service.WithRemoteTimeout(time.Second),
		)

		Convey("Then every write is refused and nothing is stored", func() {
			_, err := svc.CreateEvent(ctx, service.EventInput{Name: "Local", Date: "2025-03-12"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, _, err = svc.SubmitEvaluation(ctx, service.EvaluationInput{
				EventID: "remote", GroupID: "g1", EvaluatorName: "Ana",
			})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			So(errors.Is(svc.Reset(ctx), service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.SetPreferences(ctx, types.Preferences{Theme: model.ThemeDark})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			So(store.Events(), ShouldBeEmpty)
			So(store.Theme(), ShouldEqual, model.ThemeLight)
		})

		Convey("When the service starts", func() {
			So(svc.Start(ctx), ShouldBeNil)
			Reset(func() { _ = svc.Stop(context.Background()) })

			Convey("Then the remote structure is intact and writes are accepted", func() {
				So(store.Events(), ShouldHaveLength, 1)
				So(store.Events()[0].ID, ShouldEqual, "remote")

				_, err := svc.CreateEvent(ctx, service.EventInput{Name: "Local", Date: "2025-03-12"})
				So(err, ShouldBeNil)
				So(store.Events(), ShouldHaveLength, 2)
			})

			Convey("Then the password can be changed", func() {
				So(svc.ChangePassword(ctx, "admin", "fresh-pw", "fresh-pw"), ShouldBeNil)
			})
		})

		Convey("When the service is stopped again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then writes are refused", func() {
				So(errors.Is(svc.ChangePassword(ctx, "admin", "fresh-pw", "fresh-pw"), service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}
