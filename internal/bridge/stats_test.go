package bridge

import (
	"testing"

	"github.com/nerrad567/brager-bridge/internal/param"
)

func TestStatsSnapshot(t *testing.T) {
	stats := NewStats([]param.Descriptor{
		{Key: "a", Platform: param.PlatformSensor},
		{Key: "b", Platform: param.PlatformSensor},
		{Key: "c", Platform: param.PlatformNumber},
	})

	snapshot := stats.Snapshot()
	if snapshot.EntitiesTotal != 3 {
		t.Errorf("EntitiesTotal = %d, want 3", snapshot.EntitiesTotal)
	}
	if snapshot.EntitiesByPlatform["sensor"] != 2 || snapshot.EntitiesByPlatform["number"] != 1 {
		t.Errorf("EntitiesByPlatform = %v", snapshot.EntitiesByPlatform)
	}
	if snapshot.LastUpdate != nil {
		t.Error("LastUpdate set before any update")
	}

	stats.RecordUpdate()
	stats.RecordUpdate()
	stats.RecordStatePublish()
	stats.RecordWrite(true)
	stats.RecordWrite(false)

	snapshot = stats.Snapshot()
	if snapshot.UpdatesReceived != 2 || snapshot.StatePublishes != 1 {
		t.Errorf("counters = %+v", snapshot)
	}
	if snapshot.WritesOK != 1 || snapshot.WritesFailed != 1 {
		t.Errorf("write counters = %+v", snapshot)
	}
	if snapshot.LastUpdate == nil {
		t.Error("LastUpdate not set after update")
	}
}
