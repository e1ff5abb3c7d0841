package pgstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/avalia/internal/domain/model"
)

var fixed = time.UnixMilli(1700000000000)

func newStoreMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := New(sqlx.NewDb(db, "sqlmock"), "avalia_documents", WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return s, mock
}

func TestNewRejectsUnsafeTableNames(t *testing.T) {
	_, err := New(nil, `docs; DROP TABLE x`)
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newStoreMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "avalia_documents"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchStructureAbsent(t *testing.T) {
	s, mock := newStoreMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM "avalia_documents" WHERE collection = $1 AND id = $2`)).
		WithArgs("app", "structure").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	st, err := s.FetchStructure(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchStructurePresent(t *testing.T) {
	s, mock := newStoreMock(t)
	body := []byte(`{"events":[{"id":"e1","name":"Hack","date":"2024-01-01"}],"groups":[],"criteria":[],"updatedAt":1}`)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM "avalia_documents"`)).
		WithArgs("app", "structure").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(body))

	st, err := s.FetchStructure(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "Hack", st.Events[0].Name)
}

func TestFetchEvaluationsBuildsTree(t *testing.T) {
	s, mock := newStoreMock(t)
	rows := sqlmock.NewRows([]string{"id", "body"}).
		AddRow("e1_g1_v1", []byte(`{"id":"v1","eventId":"e1","groupId":"g1","evaluatorName":"a","scores":{"c1":4},"timestamp":1,"syncedAt":2}`)).
		AddRow("e1_g2_v2", []byte(`{"id":"v2","eventId":"e1","groupId":"g2","evaluatorName":"b","scores":{},"timestamp":1,"syncedAt":2}`))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, body FROM "avalia_documents" WHERE collection = $1`)).
		WithArgs("evaluations").
		WillReturnRows(rows)

	tree, err := s.FetchEvaluations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.0, tree["e1"]["g1"]["v1"].Scores["c1"])
	assert.Contains(t, tree["e1"], "g2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEvaluationsEmptyIsAbsent(t *testing.T) {
	s, mock := newStoreMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, body FROM`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}))

	tree, err := s.FetchEvaluations(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tree)
}

func TestPushEvaluationUpsertsCompositeKey(t *testing.T) {
	s, mock := newStoreMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "avalia_documents" (collection, id, body, updated_at)`)).
		WithArgs("evaluations", "e1_g1_v1", sqlmock.AnyArg(), fixed.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.PushEvaluation(context.Background(), model.Evaluation{ID: "v1", EventID: "e1", GroupID: "g1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPushStructureSurfacesErrors(t *testing.T) {
	s, mock := newStoreMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "avalia_documents"`)).
		WithArgs("app", "structure", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := s.PushStructure(context.Background(), model.Structure{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert app/structure")
}

func TestAdminPassword(t *testing.T) {
	s, mock := newStoreMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "avalia_documents"`)).
		WithArgs("app", "admin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM "avalia_documents"`)).
		WithArgs("app", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"password":"s3cret","updatedAt":1}`)))

	ctx := context.Background()
	require.NoError(t, s.SaveAdminPassword(ctx, "s3cret"))
	pw, ok, err := s.FetchAdminPassword(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s3cret", pw)
	require.NoError(t, mock.ExpectationsWereMet())
}
