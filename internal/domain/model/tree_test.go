package model_test

import (
	"testing"

	"github.com/okian/avalia/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func eval(id, eventID, groupID string, scores map[string]float64) model.Evaluation {
	return model.Evaluation{ID: id, EventID: eventID, GroupID: groupID, EvaluatorName: "ana", Scores: scores}
}

func TestEvaluationTree(t *testing.T) {
	Convey("Given a remote evaluations tree", t, func() {
		tree := model.BuildTree([]model.Evaluation{
			eval("3", "e1", "g2", map[string]float64{"c1": 7}),
			eval("1", "e1", "g1", map[string]float64{"c1": 9}),
			eval("2", "e2", "g9", map[string]float64{"c1": 1}),
		})

		Convey("When it is flattened", func() {
			flat := tree.Flatten()

			Convey("Then every evaluation appears exactly once", func() {
				So(flat, ShouldHaveLength, 3)
				ids := []string{flat[0].ID, flat[1].ID, flat[2].ID}
				So(ids, ShouldResemble, []string{"1", "3", "2"})
			})
		})

		Convey("When it is merged into an empty local collection", func() {
			merged := model.MergeByID(nil, tree.Flatten())

			Convey("Then the result is exactly the flattened set", func() {
				So(merged, ShouldResemble, tree.Flatten())
			})
		})

		Convey("When the local collection shares an id with the remote", func() {
			local := []model.Evaluation{
				eval("1", "e1", "g1", map[string]float64{"c1": 2}),
				eval("local-only", "e1", "g1", map[string]float64{"c1": 5}),
			}
			merged := model.MergeByID(local, tree.Flatten())

			Convey("Then the remote version wins and local-only entries survive", func() {
				So(merged, ShouldHaveLength, 4)
				byID := map[string]model.Evaluation{}
				for _, e := range merged {
					byID[e.ID] = e
				}
				So(byID["1"].Scores["c1"], ShouldEqual, 9)
				So(byID["local-only"].Scores["c1"], ShouldEqual, 5)
			})
		})
	})
}

func TestKeys(t *testing.T) {
	Convey("Given an evaluation", t, func() {
		e := eval("42", "e1", "g1", nil)

		Convey("Then flat and path keys resolve the same slot", func() {
			So(model.FlatKey(e), ShouldEqual, "e1_g1_42")
			So(model.PathKey(e), ShouldEqual, "evaluations/e1/g1/42")
		})
	})
}

func TestDefaults(t *testing.T) {
	Convey("Given a new event id", t, func() {
		criteria := model.DefaultCriteria("e1")

		Convey("Then four weighted criteria are attached to it", func() {
			So(criteria, ShouldHaveLength, 4)
			for _, c := range criteria {
				So(c.EventID, ShouldEqual, "e1")
				So(c.Weight, ShouldEqual, 1)
				So(c.ID, ShouldStartWith, "c_")
			}
		})
	})

	Convey("Evaluator names compare case and whitespace insensitively", t, func() {
		So(model.SameEvaluator("  Ana Souza ", "ana souza"), ShouldBeTrue)
		So(model.SameEvaluator("Ana", "Anna"), ShouldBeFalse)
	})

	Convey("An empty structure reports empty", t, func() {
		So(model.Structure{}.IsEmpty(), ShouldBeTrue)
		So(model.Structure{Events: []model.Event{{ID: "e1"}}}.IsEmpty(), ShouldBeFalse)
	})
}
