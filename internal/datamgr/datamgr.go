// Package datamgr is consumer index 0's callback: it validates each
// reading against a sensor-to-room map and maintains a running average
// per room, logging a warning when a room's average crosses a
// configured threshold. This is an external collaborator from the
// sbuffer core's point of view (spec.md §6): the core never observes
// whether a reading was valid or how it was aggregated.
package datamgr

import (
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/pepper-iot/sensorhub/internal/applog"
	"github.com/pepper-iot/sensorhub/internal/record"
)

// SensorMap maps a sensor id to the room it lives in. It is loaded once
// at startup from a TOML file shaped like:
//
//	[rooms]
//	kitchen = [1, 2]
//	lobby   = [3]
type SensorMap map[uint16]string

type sensorMapFile struct {
	Rooms map[string][]uint16 `toml:"rooms"`
}

// LoadSensorMap reads the sensor-to-room map from a TOML file at path.
func LoadSensorMap(path string) (SensorMap, error) {
	var f sensorMapFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.Wrapf(err, "datamgr: loading sensor map %s", path)
	}

	m := make(SensorMap)
	for room, ids := range f.Rooms {
		for _, id := range ids {
			m[id] = room
		}
	}
	return m, nil
}

// Thresholds bounds a room's running average; a crossing is logged as a
// warning but never rejects the reading.
type Thresholds struct {
	Min, Max float64
}

// Manager validates and aggregates readings against a SensorMap. The
// zero value is not usable; construct one with New.
type Manager struct {
	sensors SensorMap
	window  int

	thresholds map[string]Thresholds

	mu      sync.Mutex
	history map[string][]float64 // per-room ring of the most recent readings
}

// New creates a Manager. window is the number of recent readings each
// room's running average is computed over; values <= 0 default to 5.
func New(sensors SensorMap, window int) *Manager {
	if window <= 0 {
		window = 5
	}
	return &Manager{
		sensors:    sensors,
		window:     window,
		thresholds: make(map[string]Thresholds),
		history:    make(map[string][]float64),
	}
}

// SetThreshold configures an alert threshold for a room. Readings that
// push the room's running average outside [min, max] are logged as
// warnings.
func (m *Manager) SetThreshold(room string, min, max float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[room] = Thresholds{Min: min, Max: max}
}

// Init is the on_start hook for the consumer driver. There is no
// per-consumer resource to acquire beyond the already-loaded sensor
// map, so this only logs readiness.
func (m *Manager) Init() error {
	applog.Infof("datamgr: initialized with %d known sensors", len(m.sensors))
	return nil
}

// Free is the on_stop hook for the consumer driver.
func (m *Manager) Free() {
	applog.Infof("datamgr: shutting down")
}

// ProcessReading is the per-record callback handed to the consumer
// driver for consumer index 0. An unknown sensor id is logged and
// dropped, matching spec.md §7 taxonomy #4 (collaborator errors are
// handled inside the callback and never surface to the core).
func (m *Manager) ProcessReading(rec record.Record) error {
	room, ok := m.sensors[rec.ID]
	if !ok {
		applog.Warnf("datamgr: reading from unknown sensor id %d dropped", rec.ID)
		return nil
	}

	avg, crossed := m.record(room, rec.Value)
	if crossed {
		applog.Warnf("datamgr: room %q running average %.2f crossed its configured threshold", room, avg)
	}
	return nil
}

// record appends value to room's history (bounded to window entries),
// returning the new running average and whether it now lies outside
// the room's configured thresholds (if any are set).
func (m *Manager) record(room string, value float64) (avg float64, crossed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hist := append(m.history[room], value)
	if len(hist) > m.window {
		hist = hist[len(hist)-m.window:]
	}
	m.history[room] = hist

	var sum float64
	for _, v := range hist {
		sum += v
	}
	avg = sum / float64(len(hist))

	th, ok := m.thresholds[room]
	crossed = ok && (avg < th.Min || avg > th.Max)
	return avg, crossed
}
