package storagemgr

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pepper-iot/sensorhub/internal/record"
)

type fakePool struct {
	execs  []string
	closed bool
	failOn string
}

func (f *fakePool) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	if f.failOn != "" && sql == f.failOn {
		return pgconn.CommandTag{}, errTest
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakePool) Close() { f.closed = true }

var errTest = &testError{"fake exec failure"}

type testError struct{ s string }

func (e *testError) Error() string { return e.s }

func TestOpenConnectionAppliesSchema(t *testing.T) {
	fp := &fakePool{}
	m := New(context.Background(), "postgres://unused")
	m.dial = func(context.Context, string) (execPool, error) { return fp, nil }

	if err := m.OpenConnection(); err != nil {
		t.Fatalf("OpenConnection() err = %v", err)
	}
	if len(fp.execs) != 1 || fp.execs[0] != schema {
		t.Fatalf("schema not applied: execs = %v", fp.execs)
	}
}

func TestInsertRowBeforeOpenConnectionFails(t *testing.T) {
	m := New(context.Background(), "postgres://unused")
	if err := m.InsertRow(record.Record{ID: 1}); err == nil {
		t.Fatal("expected error inserting before OpenConnection")
	}
}

func TestInsertRowAndClose(t *testing.T) {
	fp := &fakePool{}
	m := New(context.Background(), "postgres://unused")
	m.dial = func(context.Context, string) (execPool, error) { return fp, nil }

	if err := m.OpenConnection(); err != nil {
		t.Fatalf("OpenConnection() err = %v", err)
	}
	if err := m.InsertRow(record.Record{ID: 7, Value: 1.5, Timestamp: 42}); err != nil {
		t.Fatalf("InsertRow() err = %v", err)
	}
	if len(fp.execs) != 2 {
		t.Fatalf("want schema + insert exec, got %d execs", len(fp.execs))
	}

	m.CloseConnection()
	if !fp.closed {
		t.Fatal("pool was not closed")
	}
}
