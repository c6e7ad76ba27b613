package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	realtime "github.com/coldfarms/realtime"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestJournal(t *testing.T) (*Journal, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	j := New(db, zerolog.Nop())
	j.now = func() time.Time { return fixedNow }
	return j, mock, db
}

func TestEnsureSchema(t *testing.T) {
	j, mock, _ := newTestJournal(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS realtime_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, j.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	j, mock, _ := newTestJournal(t)

	msg := &realtime.Message{
		Type: realtime.EventBookingRequestUpdated,
		Data: json.RawMessage(`{"id":7,"status":"approved"}`),
	}

	mock.ExpectExec("INSERT INTO realtime_events").
		WithArgs(msg.Type, string(msg.Data), "F1", fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, j.Record(context.Background(), msg, "F1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_NoPayload(t *testing.T) {
	j, mock, _ := newTestJournal(t)

	mock.ExpectExec("INSERT INTO realtime_events").
		WithArgs(realtime.EventCategoryUpdated, nil, "", fixedNow).
		WillReturnResult(sqlmock.NewResult(2, 1))

	require.NoError(t, j.Record(context.Background(), &realtime.Message{Type: realtime.EventCategoryUpdated}, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_Error(t *testing.T) {
	j, mock, _ := newTestJournal(t)

	mock.ExpectExec("INSERT INTO realtime_events").
		WillReturnError(errors.New("connection reset"))

	err := j.Record(context.Background(), &realtime.Message{Type: realtime.EventInventoryCreated}, "F1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record farmer_inventory_created")
}

func TestHandler_RecordsThroughClientDispatch(t *testing.T) {
	j, mock, _ := newTestJournal(t)

	mock.ExpectExec("INSERT INTO realtime_events").
		WithArgs(realtime.EventInventoryRemoved, `{"id":3}`, "F9", fixedNow).
		WillReturnResult(sqlmock.NewResult(3, 1))

	client, err := realtime.NewClient(realtime.Config{URL: "ws://coldfarms.test/ws"})
	require.NoError(t, err)
	client.Subscribe(realtime.Wildcard, j.Handler(context.Background(), "F9"))

	client.Dispatch([]byte(`{"type":"farmer_inventory_removed","data":{"id":3}}`))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	j, mock, _ := newTestJournal(t)

	rows := sqlmock.NewRows([]string{"id", "event_type", "payload", "farmer_id", "received_at"}).
		AddRow(int64(2), realtime.EventInventoryUpdated, []byte(`{"id":1,"quantity":80}`), "F1", fixedNow).
		AddRow(int64(1), realtime.EventInventoryUpdated, []byte(`{"id":1,"quantity":100}`), "F1", fixedNow.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, event_type, payload, farmer_id, received_at FROM realtime_events").
		WithArgs(realtime.EventInventoryUpdated, 10).
		WillReturnRows(rows)

	entries, err := j.Recent(context.Background(), realtime.EventInventoryUpdated, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(2), entries[0].ID)
	assert.JSONEq(t, `{"id":1,"quantity":80}`, string(entries[0].Payload))
	assert.Equal(t, "F1", entries[1].FarmerID)
	assert.True(t, entries[1].ReceivedAt.Before(entries[0].ReceivedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_QueryError(t *testing.T) {
	j, mock, _ := newTestJournal(t)

	mock.ExpectQuery("SELECT id").WillReturnError(sql.ErrConnDone)

	_, err := j.Recent(context.Background(), "", 5)
	require.ErrorIs(t, err, sql.ErrConnDone)
}
