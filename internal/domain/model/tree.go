package model

import (
	"slices"
	"strings"
)

// EvaluationTree is the remote evaluations snapshot keyed by event id,
// then group id, then evaluation id.
type EvaluationTree map[string]map[string]map[string]Evaluation

// FlatKey is the composite identifier used by flat remote backends.
func FlatKey(e Evaluation) string {
	return e.EventID + "_" + e.GroupID + "_" + e.ID
}

// PathKey is the identifier used by hierarchical remote backends.
func PathKey(e Evaluation) string {
	return strings.Join([]string{"evaluations", e.EventID, e.GroupID, e.ID}, "/")
}

// Add places e in the tree under its event and group.
func (t EvaluationTree) Add(e Evaluation) {
	groups, ok := t[e.EventID]
	if !ok {
		groups = make(map[string]map[string]Evaluation)
		t[e.EventID] = groups
	}
	evals, ok := groups[e.GroupID]
	if !ok {
		evals = make(map[string]Evaluation)
		groups[e.GroupID] = evals
	}
	evals[e.ID] = e
}

// BuildTree groups a flat list into a tree. Later entries win on id collision.
func BuildTree(evals []Evaluation) EvaluationTree {
	t := make(EvaluationTree)
	for _, e := range evals {
		t.Add(e)
	}
	return t
}

// Flatten returns every evaluation in the tree, ordered by event, group and
// evaluation id so the output is deterministic.
func (t EvaluationTree) Flatten() []Evaluation {
	var out []Evaluation
	for _, eventID := range sortedKeys(t) {
		groups := t[eventID]
		for _, groupID := range sortedKeys(groups) {
			evals := groups[groupID]
			for _, id := range sortedKeys(evals) {
				out = append(out, evals[id])
			}
		}
	}
	return out
}

// MergeByID overlays remote onto local by evaluation id. Remote wins on
// collision; local-only entries keep their position, new remote entries are
// appended in the order given.
func MergeByID(local, remote []Evaluation) []Evaluation {
	merged := make([]Evaluation, 0, len(local)+len(remote))
	index := make(map[string]int, len(local)+len(remote))
	for _, e := range local {
		if i, ok := index[e.ID]; ok {
			merged[i] = e
			continue
		}
		index[e.ID] = len(merged)
		merged = append(merged, e)
	}
	for _, e := range remote {
		if i, ok := index[e.ID]; ok {
			merged[i] = e
			continue
		}
		index[e.ID] = len(merged)
		merged = append(merged, e)
	}
	return merged
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
