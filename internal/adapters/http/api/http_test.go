package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
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

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

type client struct {
	mux      *http.ServeMux
	password string
}

func (c *client) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if admin {
		req.Header.Set(api.AdminPasswordHeader, c.password)
	}
	w := httptest.NewRecorder()
	c.mux.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func newClient() *client {
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.NewMemoryKV())
	So(err, ShouldBeNil)
	svc := service.New(store, remote.Disabled{},
		service.WithClock(func() time.Time { return testNow }),
		service.WithPasswordCost(bcrypt.MinCost),
	)
	So(svc.Start(ctx), ShouldBeNil)
	Reset(func() { _ = svc.Stop(context.Background()) })

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	return &client{mux: mux, password: "admin"}
}

func TestServer_Public(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		c := newClient()

		Convey("Then health reports the sync state", func() {
			w := c.do("GET", "/healthz", "", false)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			So(w.Body.String(), ShouldContainSubstring, `"state":"ready"`)
		})

		Convey("Then health serves metrics to scrapers", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			req.Header.Set("Accept", "text/plain")
			w := httptest.NewRecorder()
			c.mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "avalia_")
		})

		Convey("Then stats and sync are served", func() {
			So(c.do("GET", "/stats", "", false).Code, ShouldEqual, http.StatusOK)
			st := decodeBody[types.SyncStatus](c.do("GET", "/sync", "", false))
			So(st.Configured, ShouldBeFalse)
		})

		Convey("Then unknown routes are 404", func() {
			So(c.do("GET", "/unknown", "", false).Code, ShouldEqual, http.StatusNotFound)
			So(c.do("GET", "/events/missing", "", false).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then notices reject a malformed cursor", func() {
			So(c.do("GET", "/notices?after=x", "", false).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do("GET", "/notices?limit=0", "", false).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do("GET", "/notices", "", false).Code, ShouldEqual, http.StatusOK)
		})

		Convey("When preferences are saved", func() {
			w := c.do("PUT", "/preferences", `{"theme":"dark","lastEvaluatorName":"Ana"}`, false)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then they are returned", func() {
				p := decodeBody[types.Preferences](c.do("GET", "/preferences", "", false))
				So(p.Theme, ShouldEqual, model.ThemeDark)
				So(p.LastEvaluatorName, ShouldEqual, "Ana")
			})

			Convey("Then an unknown theme is rejected", func() {
				So(c.do("PUT", "/preferences", `{"theme":"blue"}`, false).Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestServer_Admin(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		c := newClient()

		Convey("When admin routes are called without the password", func() {
			w := c.do("POST", "/admin/events", `{"name":"X","date":"2025-03-15"}`, false)

			Convey("Then they are rejected", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(w.Body.String(), ShouldContainSubstring, `"code":"unauthorized"`)
			})
		})

		Convey("Then login checks the password", func() {
			So(c.do("POST", "/admin/login", `{"password":"admin"}`, false).Code, ShouldEqual, http.StatusOK)
			So(c.do("POST", "/admin/login", `{"password":"nope"}`, false).Code, ShouldEqual, http.StatusUnauthorized)
			So(c.do("POST", "/admin/login", `{}`, false).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an event is created", func() {
			w := c.do("POST", "/admin/events", `{"name":"Demo Day","date":"2025-03-15"}`, true)
			So(w.Code, ShouldEqual, http.StatusCreated)
			ev := decodeBody[model.Event](w)

			Convey("Then it is listed as ongoing", func() {
				list := decodeBody[types.EventList](c.do("GET", "/events", "", false))
				So(list.Ongoing, ShouldHaveLength, 1)
				So(list.Ongoing[0].ID, ShouldEqual, ev.ID)
			})

			Convey("Then groups, members and criteria can be managed", func() {
				w := c.do("POST", "/admin/events/"+ev.ID+"/groups", `{"name":"Rockets"}`, true)
				So(w.Code, ShouldEqual, http.StatusCreated)
				g := decodeBody[model.Group](w)

				w = c.do("POST", "/admin/groups/"+g.ID+"/members", `{"name":"Ana"}`, true)
				So(w.Code, ShouldEqual, http.StatusCreated)
				m := decodeBody[model.Member](w)

				w = c.do("PATCH", "/admin/groups/"+g.ID+"/members/"+m.ID, `{"name":"Ana Lima"}`, true)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody[model.Member](w).Name, ShouldEqual, "Ana Lima")

				w = c.do("PATCH", "/admin/groups/"+g.ID, `{"icon":"Rocket"}`, true)
				So(w.Code, ShouldEqual, http.StatusOK)

				w = c.do("POST", "/admin/events/"+ev.ID+"/criteria", `{"name":"Design"}`, true)
				So(w.Code, ShouldEqual, http.StatusCreated)
				cr := decodeBody[model.Criterion](w)
				So(cr.Description, ShouldEqual, model.DefaultCriterionDescription)

				d := decodeBody[types.EventDetail](c.do("GET", "/events/"+ev.ID, "", false))
				So(d.Groups, ShouldHaveLength, 1)
				So(d.Criteria, ShouldHaveLength, 5)

				So(c.do("DELETE", "/admin/criteria/"+cr.ID, "", true).Code, ShouldEqual, http.StatusNoContent)
				So(c.do("DELETE", "/admin/groups/"+g.ID+"/members/"+m.ID, "", true).Code, ShouldEqual, http.StatusNoContent)
				So(c.do("DELETE", "/admin/groups/"+g.ID, "", true).Code, ShouldEqual, http.StatusNoContent)
				So(c.do("DELETE", "/admin/groups/"+g.ID, "", true).Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then a closed deadline blocks evaluations", func() {
				w := c.do("PATCH", "/admin/events/"+ev.ID, `{"date":"2025-03-01","responseDeadline":""}`, true)
				So(w.Code, ShouldEqual, http.StatusOK)
				g := decodeBody[model.Group](c.do("POST", "/admin/events/"+ev.ID+"/groups", `{"name":"Rockets"}`, true))

				w = c.do("POST", "/events/"+ev.ID+"/evaluations", fmt.Sprintf(`{"groupId":%q,"evaluatorName":"Ana"}`, g.ID), false)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, `"code":"event_closed"`)
			})

			Convey("Then the event can be deleted", func() {
				So(c.do("DELETE", "/admin/events/"+ev.ID, "", true).Code, ShouldEqual, http.StatusNoContent)
				So(c.do("GET", "/events/"+ev.ID, "", false).Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the event payload is invalid", func() {
			So(c.do("POST", "/admin/events", `{"name":"X","date":"15/03/2025"}`, true).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do("POST", "/admin/events", `{"name":"X","date":"2025-03-15","extra":1}`, true).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do("POST", "/admin/events", `not json`, true).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the password is changed", func() {
			w := c.do("PUT", "/admin/password", `{"current":"admin","next":"s3cret","confirm":"s3cret"}`, true)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the old password no longer works", func() {
				So(c.do("POST", "/admin/reset", "", true).Code, ShouldEqual, http.StatusUnauthorized)
				c.password = "s3cret"
				So(c.do("POST", "/admin/reset", "", true).Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the new password is too short", func() {
			w := c.do("PUT", "/admin/password", `{"current":"admin","next":"abc","confirm":"abc"}`, true)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Evaluations(t *testing.T) {
	Convey("Given an open event with a group", t, func() {
		c := newClient()
		ev := decodeBody[model.Event](c.do("POST", "/admin/events", `{"name":"Demo Day","date":"2025-03-15"}`, true))
		g := decodeBody[model.Group](c.do("POST", "/admin/events/"+ev.ID+"/groups", `{"name":"Rockets"}`, true))
		d := decodeBody[types.EventDetail](c.do("GET", "/events/"+ev.ID, "", false))
		c1 := d.Criteria[0].ID
		path := "/events/" + ev.ID + "/evaluations"

		Convey("When an evaluation is submitted", func() {
			w := c.do("POST", path, fmt.Sprintf(`{"groupId":%q,"evaluatorName":"Ana","scores":{%q:8},"groupComment":" nice "}`, g.ID, c1), false)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then resubmitting by the same evaluator updates it", func() {
				w := c.do("POST", path, fmt.Sprintf(`{"groupId":%q,"evaluatorName":" ana ","scores":{%q:6}}`, g.ID, c1), false)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"updated":true`)

				evals := decodeBody[[]model.Evaluation](c.do("GET", path+"?group="+g.ID+"&evaluator=ANA", "", false))
				So(evals, ShouldHaveLength, 1)
				So(evals[0].Scores[c1], ShouldEqual, 6)
			})

			Convey("Then the ranking reflects it", func() {
				w := c.do("GET", "/admin/events/"+ev.ID+"/ranking", "", true)
				So(w.Code, ShouldEqual, http.StatusOK)
				r := decodeBody[types.Ranking](w)
				So(r.Entries, ShouldHaveLength, 1)
				So(r.Entries[0].Score, ShouldEqual, "8.0")
				So(r.Entries[0].Comments[0].Text, ShouldEqual, "nice")
			})
		})

		Convey("Then out-of-range scores are rejected", func() {
			w := c.do("POST", path, fmt.Sprintf(`{"groupId":%q,"evaluatorName":"Ana","scores":{%q:11}}`, g.ID, c1), false)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then an unknown group is not found", func() {
			w := c.do("POST", path, `{"groupId":"g_missing","evaluatorName":"Ana"}`, false)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a missing evaluator name is rejected", func() {
			w := c.do("POST", path, fmt.Sprintf(`{"groupId":%q}`, g.ID), false)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestKindError(t *testing.T) {
	Convey("Given a wrapped kind error", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: eof")
		})

		Convey("Then a bare kind renders without a cause", func() {
			So(api.NewKind("api.op", api.ErrUnauthorized).Error(), ShouldEqual, "api.op: admin password required")
		})
	})
}

func TestServer_NotStarted(t *testing.T) {
	Convey("Given a server over a service that has not started", t, func() {
		store, err := repository.Open(context.Background(), repository.NewMemoryKV())
		So(err, ShouldBeNil)
		svc := service.New(store, remote.Disabled{}, service.WithPasswordCost(bcrypt.MinCost))
		mux := http.NewServeMux()
		api.NewServer(svc).Register(mux)
		c := &client{mux: mux}

		Convey("Then writes are refused as unavailable", func() {
			w := c.do("PUT", "/preferences", `{"theme":"dark"}`, false)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "not_started")
		})

		Convey("Then reads still answer", func() {
			So(c.do("GET", "/events", "", false).Code, ShouldEqual, http.StatusOK)
		})
	})
}
