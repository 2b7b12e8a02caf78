package datamgr

import (
	"testing"

	"github.com/pepper-iot/sensorhub/internal/record"
)

func TestProcessReadingAggregatesPerRoom(t *testing.T) {
	sensors := SensorMap{1: "kitchen", 2: "kitchen", 3: "lobby"}
	m := New(sensors, 3)

	readings := []record.Record{
		{ID: 1, Value: 10},
		{ID: 2, Value: 20},
		{ID: 1, Value: 30},
	}
	for _, r := range readings {
		if err := m.ProcessReading(r); err != nil {
			t.Fatalf("ProcessReading(%v) err = %v", r, err)
		}
	}

	avg, _ := m.record("kitchen", 0)
	// record() appended a fourth 0 value; window=3 keeps the last 3: 20,30,0.
	if want := (20.0 + 30.0 + 0.0) / 3; avg != want {
		t.Fatalf("avg = %v; want %v", avg, want)
	}
}

func TestProcessReadingUnknownSensorDropped(t *testing.T) {
	m := New(SensorMap{}, 5)
	if err := m.ProcessReading(record.Record{ID: 99, Value: 1}); err != nil {
		t.Fatalf("ProcessReading() err = %v; unknown sensor must not surface as an error", err)
	}
}

func TestThresholdCrossingDetected(t *testing.T) {
	m := New(SensorMap{1: "kitchen"}, 2)
	m.SetThreshold("kitchen", 0, 50)

	if _, crossed := m.record("kitchen", 10); crossed {
		t.Fatal("10 should be within [0,50]")
	}
	if _, crossed := m.record("kitchen", 100); !crossed {
		t.Fatal("average should cross above 50 once a 100 reading is averaged in")
	}
}
