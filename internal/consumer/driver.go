// Package consumer implements the generic consumer driver loop shared
// by the data manager and storage manager goroutines: acquire
// per-consumer resources, pull records off the shared buffer until it
// closes, hand each one to a callback, acknowledge it, then release the
// resources.
package consumer

import (
	"fmt"

	"github.com/pepper-iot/sensorhub/internal/applog"
	"github.com/pepper-iot/sensorhub/internal/record"
	"github.com/pepper-iot/sensorhub/internal/sbuffer"
)

// Process handles one record. An error is logged by the driver and does
// not stop the loop: the driver still acks the record, matching
// spec.md's requirement that a collaborator failure not stall
// reclamation.
type Process func(record.Record) error

// Driver runs one consumer's on_start/loop/on_stop lifecycle against a
// shared buffer, identified by Index (0 for the data manager, 1 for the
// storage manager per spec.md §4.4).
type Driver struct {
	// Name identifies the consumer in log output (e.g. "datamgr").
	Name string

	// Index is this consumer's slot in the buffer's cursor array.
	Index int

	// OnStart acquires per-consumer resources (e.g. opening a database
	// connection). A non-nil error aborts Run before the loop starts.
	OnStart func() error

	// Process handles a single record. Its return value is logged, not
	// propagated: the caller must still be able to Ack.
	Process Process

	// OnStop releases whatever OnStart acquired. It always runs, even
	// if OnStart failed partway (OnStop must tolerate partial setup).
	OnStop func()
}

// Run drives the consumer against buf until buf is closed and drained
// for this consumer's index. It blocks until that happens.
func (d *Driver) Run(buf *sbuffer.Buffer) error {
	defer func() {
		if d.OnStop != nil {
			d.OnStop()
		}
	}()

	if d.OnStart != nil {
		if err := d.OnStart(); err != nil {
			return fmt.Errorf("consumer %s: on_start: %w", d.Name, err)
		}
	}

	for {
		rec, ok := buf.NextUnread(d.Index)
		if !ok {
			applog.Debugf("consumer %s: buffer closed and drained, exiting", d.Name)
			return nil
		}

		d.process(rec)

		// Ack unconditionally: a failed or panicking Process must not
		// leak the node or stall reclamation for the other consumer.
		buf.Ack(d.Index)
	}
}

// process runs d.Process, recovering from any panic so that the caller
// can still reach Ack. A panicking callback is a collaborator failure
// like any other (spec.md §7 taxonomy #4), not a reason to stall
// reclamation or crash the server.
func (d *Driver) process(rec record.Record) {
	if d.Process == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			applog.Errorf("consumer %s: processing %v panicked: %v", d.Name, rec, r)
		}
	}()
	if err := d.Process(rec); err != nil {
		applog.Warnf("consumer %s: processing %v failed: %v", d.Name, rec, err)
	}
}
