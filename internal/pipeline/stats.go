package pipeline

import (
	"sync"
	"time"
)

// Stats are the counters for one completed run. CloneDuration stays zero for
// local scans and is filled by the caller that performed the clone.
type Stats struct {
	FilesProcessed  int
	BinariesSkipped int
	EntriesDropped  int
	TotalTokens     int
	CloneDuration   time.Duration
	Duration        time.Duration
}

// StatsCollector accumulates Stats across concurrent runs. Reads are only
// meaningful after every contributing run has finished.
type StatsCollector struct {
	mutex sync.Mutex
	total Stats
}

// Add merges one run's counters into the collector.
func (collector *StatsCollector) Add(stats Stats) {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.total.FilesProcessed += stats.FilesProcessed
	collector.total.BinariesSkipped += stats.BinariesSkipped
	collector.total.EntriesDropped += stats.EntriesDropped
	collector.total.TotalTokens += stats.TotalTokens
	collector.total.CloneDuration += stats.CloneDuration
	collector.total.Duration += stats.Duration
}

// Total returns the accumulated counters.
func (collector *StatsCollector) Total() Stats {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	return collector.total
}
