// Package server is the lifecycle coordinator: it creates the shared
// buffer, spawns the two consumer drivers, runs the connection manager,
// and tears everything down in the order spec.md §4.4 requires.
package server

import (
	"context"
	"sync"

	"github.com/pepper-iot/sensorhub/internal/applog"
	"github.com/pepper-iot/sensorhub/internal/connmgr"
	"github.com/pepper-iot/sensorhub/internal/consumer"
	"github.com/pepper-iot/sensorhub/internal/datamgr"
	"github.com/pepper-iot/sensorhub/internal/sbuffer"
	"github.com/pepper-iot/sensorhub/internal/storagemgr"
)

// Server wires the core buffer to its two consumers and the connection
// manager, and owns their combined startup/shutdown sequence.
type Server struct {
	buf     *sbuffer.Buffer
	connmgr *connmgr.Manager
	data    *datamgr.Manager
	storage *storagemgr.Manager
}

// New constructs a Server. data and storage are the already-configured
// data and storage managers; the connection manager and shared buffer
// are created internally.
func New(data *datamgr.Manager, storage *storagemgr.Manager) *Server {
	buf := sbuffer.New()
	return &Server{
		buf:     buf,
		connmgr: connmgr.New(buf),
		data:    data,
		storage: storage,
	}
}

// Run executes the full lifecycle: spawn both consumers, run the
// connection manager until ctx is cancelled, close the buffer, join the
// consumers, then check that the buffer is empty (logging an error if it
// is not) and return the connection manager's error. It mirrors
// main.c's ordering: connmgr_listen runs synchronously, sbuffer_close
// is called only after it returns, then both consumer threads are
// joined before teardown.
func (s *Server) Run(ctx context.Context, addr string) error {
	var wg sync.WaitGroup
	consumerErrs := make(chan error, sbuffer.NumConsumers)

	drivers := []*consumer.Driver{
		{
			Name:    "datamgr",
			Index:   0,
			OnStart: s.data.Init,
			Process: s.data.ProcessReading,
			OnStop:  s.data.Free,
		},
		{
			Name:    "storagemgr",
			Index:   1,
			OnStart: s.storage.OpenConnection,
			Process: s.storage.InsertRow,
			OnStop:  s.storage.CloseConnection,
		},
	}

	for _, d := range drivers {
		wg.Add(1)
		go func(d *consumer.Driver) {
			defer wg.Done()
			if err := d.Run(s.buf); err != nil {
				consumerErrs <- err
			}
		}(d)
	}

	serveErr := s.connmgr.ListenAndServe(ctx, addr)

	s.buf.Close()
	wg.Wait()
	close(consumerErrs)

	if !s.buf.Empty() {
		applog.Errorf("server: buffer not empty after shutdown; invariant violated")
	}

	for err := range consumerErrs {
		if err != nil {
			applog.Errorf("server: consumer exited with error: %v", err)
		}
	}

	return serveErr
}
