package bridge

import (
	"sync"
	"time"

	"github.com/nerrad567/brager-bridge/internal/param"
)

// Stats tracks bridge activity counters for the diagnostics API.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Stats struct {
	mu sync.RWMutex

	entitiesByPlatform map[param.Platform]int
	updatesReceived    uint64
	statePublishes     uint64
	writesOK           uint64
	writesFailed       uint64
	lastUpdate         time.Time
	startedAt          time.Time
}

// StatsSnapshot is a point-in-time copy of the counters, JSON-ready for
// the diagnostics API.
type StatsSnapshot struct {
	EntitiesByPlatform map[string]int `json:"entities_by_platform"`
	EntitiesTotal      int            `json:"entities_total"`
	UpdatesReceived    uint64         `json:"updates_received"`
	StatePublishes     uint64         `json:"state_publishes"`
	WritesOK           uint64         `json:"writes_ok"`
	WritesFailed       uint64         `json:"writes_failed"`
	LastUpdate         *time.Time     `json:"last_update,omitempty"`
	UptimeSeconds      float64        `json:"uptime_seconds"`
}

// NewStats creates a stats tracker seeded with the entity census.
func NewStats(descriptors []param.Descriptor) *Stats {
	byPlatform := make(map[param.Platform]int)
	for i := range descriptors {
		byPlatform[descriptors[i].Platform]++
	}
	return &Stats{
		entitiesByPlatform: byPlatform,
		startedAt:          time.Now(),
	}
}

// RecordUpdate counts one inbound parameter update.
func (s *Stats) RecordUpdate() {
	s.mu.Lock()
	s.updatesReceived++
	s.lastUpdate = time.Now()
	s.mu.Unlock()
}

// RecordStatePublish counts one entity state publish.
func (s *Stats) RecordStatePublish() {
	s.mu.Lock()
	s.statePublishes++
	s.mu.Unlock()
}

// RecordWrite counts one command write attempt.
func (s *Stats) RecordWrite(ok bool) {
	s.mu.Lock()
	if ok {
		s.writesOK++
	} else {
		s.writesFailed++
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPlatform := make(map[string]int, len(s.entitiesByPlatform))
	total := 0
	for platform, count := range s.entitiesByPlatform {
		byPlatform[string(platform)] = count
		total += count
	}

	snapshot := StatsSnapshot{
		EntitiesByPlatform: byPlatform,
		EntitiesTotal:      total,
		UpdatesReceived:    s.updatesReceived,
		StatePublishes:     s.statePublishes,
		WritesOK:           s.writesOK,
		WritesFailed:       s.writesFailed,
		UptimeSeconds:      time.Since(s.startedAt).Seconds(),
	}
	if !s.lastUpdate.IsZero() {
		lastUpdate := s.lastUpdate
		snapshot.LastUpdate = &lastUpdate
	}
	return snapshot
}
