// Package connmgr is the network-facing connection manager: it accepts
// TCP connections from sensor nodes, decodes fixed-format measurement
// records off each connection, and inserts them into the shared buffer.
// It is an external collaborator from the sbuffer core's point of view
// (spec.md §6) — the core only ever sees Insert and Close calls.
//
// The per-connection bookkeeping (a mutex-guarded closed flag plus a
// done channel, one log line per lifecycle event) follows the shape of
// core/conn/conn.go's Conn type from the teacher package, adapted from
// a single outbound client connection to many inbound server
// connections, and the audit-log style is grounded on the retrieved
// session-manager example that logs connection lifecycle events via
// logrus.WithField.
package connmgr

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pepper-iot/sensorhub/internal/applog"
	"github.com/pepper-iot/sensorhub/internal/record"
)

// readTimeout bounds how long handle blocks in a single Decode call. It
// is reset after every successful decode, so a busy connection never
// trips it; its only job is to wake a connection that has gone idle so
// Shutdown's wg.Wait can notice the manager has closed. Variable (not
// const) so tests can shrink it instead of waiting out a real 30s idle
// connection.
var readTimeout = 30 * time.Second

// Inserter is the producer-facing surface of the shared buffer: the
// only thing the connection manager is allowed to do to it.
type Inserter interface {
	Insert(record.Record)
}

// Manager listens on a TCP port and feeds every decoded record to an
// Inserter. The zero value is not usable; construct one with New.
type Manager struct {
	inserter Inserter
	audit    *logrus.Entry

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	closed   bool
}

// New returns a Manager that will insert decoded records into ins.
func New(ins Inserter) *Manager {
	return &Manager{
		inserter: ins,
		audit:    logrus.WithField("component", "connmgr"),
	}
}

// ListenAndServe listens on addr (e.g. ":1234") and accepts connections
// until ctx is cancelled or Shutdown is called, whichever happens
// first. It blocks until the accept loop has fully stopped, matching
// the original connmgr_listen's synchronous-until-epoch-ends contract
// from spec.md §4.4 step 4.
func (m *Manager) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.listener = ln
	m.mu.Unlock()

	applog.Infof("connmgr: listening on %s", addr)

	go func() {
		<-ctx.Done()
		m.Shutdown(context.Background())
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			m.mu.Lock()
			closed := m.closed
			m.mu.Unlock()
			if closed {
				m.wg.Wait()
				return nil
			}
			return err
		}

		m.wg.Add(1)
		go m.handle(conn)
	}
}

// handle decodes records off conn until it errors or is closed, then
// closes the connection. Each handled connection runs on its own
// goroutine, so Insert must be (and is) safe for concurrent callers.
//
// Every read carries a deadline, reset after each successful decode, so
// an idle-but-still-open connection's blocked Read is interrupted
// periodically rather than held forever: without that, Shutdown's
// wg.Wait would never return for a sensor node that stopped sending but
// never closed its socket, and the whole graceful-shutdown sequence
// (ListenAndServe -> sbuffer.Close -> consumer join) would hang.
func (m *Manager) handle(conn net.Conn) {
	defer m.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	m.audit.WithField("remote", remote).Info("sensor node connected")

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			m.audit.WithField("remote", remote).WithError(err).Debug("sensor node disconnected")
			return
		}

		rec, err := record.Decode(conn)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() && !m.isClosed() {
				// Idle connection, manager still running: keep waiting.
				continue
			}
			m.audit.WithField("remote", remote).WithError(err).Debug("sensor node disconnected")
			return
		}
		m.inserter.Insert(rec)
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Shutdown stops accepting new connections. In-flight connection
// handlers keep decoding records and exit on their own once the sensor
// node disconnects or a read hits its deadline (readTimeout) with the
// manager closed. Shutdown does not forcibly cut active
// connections, matching main.c's ordering: connmgr_listen returns
// before sbuffer_close is called, so every record already on the wire
// before shutdown is still observed. It is idempotent.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ln := m.listener
	m.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
