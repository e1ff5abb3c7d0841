package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/avalia/internal/domain/model"
)

var fixed = time.UnixMilli(1700000000000)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "avalia", WithClock(func() time.Time { return fixed }))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestFetchOnEmptyRemoteIsAbsent(t *testing.T) {
	s, _ := setupTestRedis(t)
	ctx := context.Background()

	st, err := s.FetchStructure(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	tree, err := s.FetchEvaluations(ctx)
	require.NoError(t, err)
	assert.Nil(t, tree)

	_, ok, err := s.FetchAdminPassword(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPushStructureOverwritesSingleDocument(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.PushStructure(ctx, model.Structure{Events: []model.Event{{ID: "old"}}}))
	require.NoError(t, s.PushStructure(ctx, model.Structure{Events: []model.Event{{ID: "e1", Name: "Hack"}}}))

	raw, err := mr.Get("avalia:app/structure")
	require.NoError(t, err)
	var doc model.StructureDocument
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, int64(1700000000000), doc.UpdatedAt)

	st, err := s.FetchStructure(ctx)
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Len(t, st.Events, 1)
	assert.Equal(t, "e1", st.Events[0].ID)
}

func TestPushEvaluationUsesCompositeKey(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	e := model.Evaluation{ID: "v1", EventID: "e1", GroupID: "g1", EvaluatorName: "Ana", Scores: map[string]float64{"c1": 7}}
	require.NoError(t, s.PushEvaluation(ctx, e))
	e.Scores = map[string]float64{"c1": 9}
	require.NoError(t, s.PushEvaluation(ctx, e))
	require.NoError(t, s.PushEvaluation(ctx, model.Evaluation{ID: "v2", EventID: "e1", GroupID: "g2"}))

	raw := mr.HGet("avalia:evaluations", "e1_g1_v1")
	var rec model.EvaluationRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, int64(1700000000000), rec.SyncedAt)

	tree, err := s.FetchEvaluations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9.0, tree["e1"]["g1"]["v1"].Scores["c1"])
	assert.Len(t, tree.Flatten(), 2)
}

func TestAdminPasswordRoundTrip(t *testing.T) {
	s, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAdminPassword(ctx, "s3cret"))
	pw, ok, err := s.FetchAdminPassword(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s3cret", pw)
}

func TestUnreachableRemoteSurfacesErrors(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	_, err := s.FetchStructure(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.PushEvaluation(context.Background(), model.Evaluation{ID: "v"}))
}

func TestUnreachableServerFailsOnFirstCall(t *testing.T) {
	s := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), "avalia")
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.FetchStructure(ctx)
	assert.Error(t, err)
}
