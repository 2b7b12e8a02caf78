// Package storagemgr is consumer index 1's callback: it persists every
// acknowledged reading into Postgres. Like internal/datamgr, this is an
// external collaborator from the sbuffer core's point of view — the
// core never observes whether a row was actually written.
//
// The pool + idempotent schema-on-connect pattern follows the resolver
// in the retrieved cdc-sink example (jackc/pgx/v5, a
// CREATE TABLE IF NOT EXISTS issued once up front rather than run
// through a migration framework, appropriate for a single flat
// append-only table).
package storagemgr

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/pepper-iot/sensorhub/internal/applog"
	"github.com/pepper-iot/sensorhub/internal/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id         BIGSERIAL PRIMARY KEY,
	sensor_id  INTEGER   NOT NULL,
	value      DOUBLE PRECISION NOT NULL,
	ts         BIGINT    NOT NULL
)`

// execPool is the subset of *pgxpool.Pool this package relies on,
// narrowed to make InsertRow/OpenConnection testable without a live
// Postgres instance.
type execPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Handle wraps an open connection pool.
type Handle struct {
	pool execPool
}

// Manager holds at most one connection pool against dsn: OpenConnection
// opens a new pool and CloseConnection closes it, so each consumer
// driver OnStart/OnStop cycle gets its own pool.
type Manager struct {
	dsn string
	ctx context.Context

	// dial is overridden in tests to avoid a real network connection.
	dial func(ctx context.Context, dsn string) (execPool, error)

	handle *Handle
}

// New returns a Manager that will connect to dsn when OpenConnection is
// called. ctx bounds connection setup and every query issued through
// the resulting Handle.
func New(ctx context.Context, dsn string) *Manager {
	return &Manager{
		dsn: dsn,
		ctx: ctx,
		dial: func(ctx context.Context, dsn string) (execPool, error) {
			return pgxpool.New(ctx, dsn)
		},
	}
}

// OpenConnection is the on_start hook for the consumer driver: it opens
// the pool and ensures the readings table exists.
func (m *Manager) OpenConnection() error {
	pool, err := m.dial(m.ctx, m.dsn)
	if err != nil {
		return errors.Wrap(err, "storagemgr: opening connection pool")
	}
	if _, err := pool.Exec(m.ctx, schema); err != nil {
		pool.Close()
		return errors.Wrap(err, "storagemgr: ensuring schema")
	}

	m.handle = &Handle{pool: pool}
	applog.Infof("storagemgr: connected")
	return nil
}

// InsertRow is the per-record callback handed to the consumer driver
// for consumer index 1.
func (m *Manager) InsertRow(rec record.Record) error {
	if m.handle == nil {
		return errors.New("storagemgr: InsertRow called before OpenConnection")
	}
	_, err := m.handle.pool.Exec(m.ctx,
		`INSERT INTO readings (sensor_id, value, ts) VALUES ($1, $2, $3)`,
		rec.ID, rec.Value, rec.Timestamp,
	)
	if err != nil {
		return errors.Wrapf(err, "storagemgr: inserting reading %v", rec)
	}
	return nil
}

// CloseConnection is the on_stop hook for the consumer driver.
func (m *Manager) CloseConnection() {
	if m.handle == nil {
		return
	}
	m.handle.pool.Close()
	applog.Infof("storagemgr: connection closed")
	m.handle = nil
}
