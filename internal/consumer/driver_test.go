package consumer

import (
	"errors"
	"sync"
	"testing"

	"github.com/pepper-iot/sensorhub/internal/record"
	"github.com/pepper-iot/sensorhub/internal/sbuffer"
)

func TestDriverRunsStartProcessStop(t *testing.T) {
	buf := sbuffer.New()
	buf.Insert(record.Record{ID: 1})
	buf.Insert(record.Record{ID: 2})
	buf.Close()

	var mu sync.Mutex
	var started, stopped bool
	var seen []uint16

	d := Driver{
		Name:  "test",
		Index: 0,
		OnStart: func() error {
			mu.Lock()
			started = true
			mu.Unlock()
			return nil
		},
		Process: func(rec record.Record) error {
			mu.Lock()
			seen = append(seen, rec.ID)
			mu.Unlock()
			return nil
		},
		OnStop: func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
		},
	}

	if err := d.Run(buf); err != nil {
		t.Fatalf("Run() err = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !started || !stopped {
		t.Fatalf("started=%v stopped=%v; want both true", started, stopped)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("seen = %v; want [1 2]", seen)
	}
}

func TestDriverAcksEvenWhenProcessErrors(t *testing.T) {
	buf := sbuffer.New()
	buf.Insert(record.Record{ID: 1})
	buf.Close()

	d := Driver{
		Index: 0,
		Process: func(record.Record) error {
			return errors.New("boom")
		},
	}

	if err := d.Run(buf); err != nil {
		t.Fatalf("Run() err = %v; a failing Process must not abort the driver", err)
	}
	// Only consumer 0 runs here, so the node stays live until consumer 1
	// acks it too; consumer 0's ack shows up in the Calculated counter.
	if c := buf.Counters(); c.Calculated != 1 {
		t.Fatalf("counters = %+v; record was not acked after a failing Process", c)
	}
}

func TestDriverAcksEvenWhenProcessPanics(t *testing.T) {
	buf := sbuffer.New()
	buf.Insert(record.Record{ID: 1})
	buf.Insert(record.Record{ID: 2})
	buf.Close()

	var seen []uint16
	d := Driver{
		Index: 0,
		Process: func(rec record.Record) error {
			seen = append(seen, rec.ID)
			if rec.ID == 1 {
				panic("boom")
			}
			return nil
		},
	}

	if err := d.Run(buf); err != nil {
		t.Fatalf("Run() err = %v; a panicking Process must not abort the driver", err)
	}
	if c := buf.Counters(); c.Calculated != 2 {
		t.Fatalf("counters = %+v; records were not acked after a panicking Process", c)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("seen = %v; want [1 2] (driver must keep looping after a recovered panic)", seen)
	}
}

func TestDriverOnStartFailureSkipsLoop(t *testing.T) {
	buf := sbuffer.New()

	stopped := false
	d := Driver{
		Index:   0,
		OnStart: func() error { return errors.New("no db") },
		OnStop:  func() { stopped = true },
	}

	if err := d.Run(buf); err == nil {
		t.Fatal("expected Run() to return an error when OnStart fails")
	}
	if !stopped {
		t.Fatal("OnStop must still run after a failed OnStart")
	}
}
