// Package stats provides extraction statistics tracking.
package stats

import (
	"sync"
	"time"

	"github.com/sift-ai/sift/internal/extract"
)

// Collector tracks extraction metrics. Safe for use across streams; the
// session manager shares one collector between all of its streams.
type Collector struct {
	mu sync.Mutex

	startTime     time.Time
	fragmentCount int64
	byteCount     int64
	plainCount    int64
	callCount     int64
	errorCount    int64
	byReason      map[extract.Reason]int64
	totalScan     time.Duration
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		byReason:  make(map[extract.Reason]int64),
	}
}

// Stats is a snapshot of extraction metrics.
type Stats struct {
	Uptime string `json:"uptime"`

	FragmentCount int64 `json:"fragment_count"`
	ByteCount     int64 `json:"byte_count"`

	PlainCount int64 `json:"plain_count"`
	CallCount  int64 `json:"call_count"`
	ErrorCount int64 `json:"error_count"`

	ErrorsByReason map[string]int64 `json:"errors_by_reason,omitempty"`

	AvgScanMicros float64 `json:"avg_scan_micros"`
}

// RecordFragment records one processed fragment.
func (c *Collector) RecordFragment(bytes int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fragmentCount++
	c.byteCount += int64(bytes)
	c.totalScan += duration
}

// RecordEmissions records scanner output, from a fragment or end-of-stream.
func (c *Collector) RecordEmissions(emissions []extract.Emission) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range emissions {
		switch e.Kind {
		case extract.KindPlainText:
			c.plainCount++
		case extract.KindToolCall:
			c.callCount++
		case extract.KindParseError:
			c.errorCount++
			c.byReason[e.Err.Reason]++
		}
	}
}

// Snapshot returns current metrics.
func (c *Collector) Snapshot() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	avg := float64(0)
	if c.fragmentCount > 0 {
		avg = float64(c.totalScan.Microseconds()) / float64(c.fragmentCount)
	}

	var byReason map[string]int64
	if len(c.byReason) > 0 {
		byReason = make(map[string]int64, len(c.byReason))
		for reason, n := range c.byReason {
			byReason[string(reason)] = n
		}
	}

	return &Stats{
		Uptime:         time.Since(c.startTime).String(),
		FragmentCount:  c.fragmentCount,
		ByteCount:      c.byteCount,
		PlainCount:     c.plainCount,
		CallCount:      c.callCount,
		ErrorCount:     c.errorCount,
		ErrorsByReason: byReason,
		AvgScanMicros:  avg,
	}
}

// StartTime returns when the collector started.
func (c *Collector) StartTime() time.Time {
	return c.startTime
}
