package common

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats holds atomic counters for ingestion telemetry
type Stats struct {
	FilesRead uint64 // Atomic counter for source files opened
	RowsRead  uint64 // Atomic counter for raw rows parsed
	BytesRead uint64 // Atomic counter for raw bytes read (after decompression)

	startTime time.Time
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

// AddFile atomically increments the files counter
func (s *Stats) AddFile() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.FilesRead, 1)
}

// AddRows atomically increments the rows counter
func (s *Stats) AddRows(count uint64) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.RowsRead, count)
}

// AddBytes atomically increments the bytes counter
func (s *Stats) AddBytes(count uint64) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.BytesRead, count)
}

// GetFiles atomically reads the files counter
func (s *Stats) GetFiles() uint64 {
	return atomic.LoadUint64(&s.FilesRead)
}

// GetRows atomically reads the rows counter
func (s *Stats) GetRows() uint64 {
	return atomic.LoadUint64(&s.RowsRead)
}

// GetBytes atomically reads the bytes counter
func (s *Stats) GetBytes() uint64 {
	return atomic.LoadUint64(&s.BytesRead)
}

// Elapsed returns the time since NewStats or the last Reset
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.startTime)
}

// Report logs the final statistics block
func (s *Stats) Report(l *zap.Logger) {
	elapsed := s.Elapsed()
	rows := s.GetRows()

	Banner(l, "Final Statistics")
	l.Info("totals",
		zap.Uint64("files", s.GetFiles()),
		zap.Uint64("rows", rows),
		zap.Float64("mib", float64(s.GetBytes())/(1024*1024)),
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
	)
	if secs := elapsed.Seconds(); secs > 0 {
		l.Info("rate", zap.Float64("rows_per_sec", float64(rows)/secs))
	}
}

// Reset resets all counters (useful for testing or restarting)
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.FilesRead, 0)
	atomic.StoreUint64(&s.RowsRead, 0)
	atomic.StoreUint64(&s.BytesRead, 0)
	s.startTime = time.Now()
}
