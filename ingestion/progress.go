// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Progress is a point-in-time view of a ProgressTracker.
type Progress struct {
	Done    int // items finished, failed ones included
	Failed  int
	Total   int
	Elapsed time.Duration
}

// Percent returns Done as a percentage of Total, or 0 when Total is 0.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total) * 100
}

// Rate returns finished items per second.
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Done) / p.Elapsed.Seconds()
}

// Remaining estimates the time left at the current rate. It is 0 when
// nothing is done yet or everything is.
func (p Progress) Remaining() time.Duration {
	if p.Done == 0 || p.Done >= p.Total {
		return 0
	}
	perItem := p.Elapsed / time.Duration(p.Done)
	return perItem * time.Duration(p.Total-p.Done)
}

// ProgressTracker reports progress of bulk ingestion and collection
// migration as a single rewritten line.
type ProgressTracker struct {
	mu       sync.Mutex
	writer   io.Writer
	unit     string
	total    int
	every    int
	done     int
	failed   int
	reported int
	start    time.Time
	started  bool
}

// NewProgressTracker creates a tracker for total items, labeled unit in the
// rate ("documents", "records"). A line is written every reportInterval items.
func NewProgressTracker(writer io.Writer, unit string, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		unit:   unit,
		total:  total,
		every:  max(reportInterval, 1),
	}
}

// Start resets the counters and starts the clock. Updates before Start are ignored.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = time.Now()
	p.started = true
	p.done, p.failed, p.reported = 0, 0, 0
}

// Set records that done items are finished.
func (p *ProgressTracker) Set(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(done - p.done)
}

// Add records delta more finished items.
func (p *ProgressTracker) Add(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(delta)
}

// Fail records one finished item that failed.
func (p *ProgressTracker) Fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		p.failed++
	}
	p.advance(1)
}

// advance must be called with the lock held.
func (p *ProgressTracker) advance(delta int) {
	if !p.started {
		return
	}
	p.done = min(p.done+delta, p.total)
	if p.done-p.reported >= p.every {
		p.report()
		p.reported = p.done
	}
}

// Finish marks every item done, writes the final line and ends it.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.done = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Snapshot returns the current progress.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Elapsed returns the time since Start, or 0 if not started.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot().Elapsed
}

func (p *ProgressTracker) snapshot() Progress {
	s := Progress{Done: p.done, Failed: p.failed, Total: p.total}
	if p.started {
		s.Elapsed = time.Since(p.start)
	}
	return s
}

func (p *ProgressTracker) report() {
	s := p.snapshot()

	var line strings.Builder
	fmt.Fprintf(&line, "\rProgress: %d/%d (%.1f%%) - %.1f %s/s", s.Done, s.Total, s.Percent(), s.Rate(), p.unit)
	if s.Failed > 0 {
		fmt.Fprintf(&line, ", %d failed", s.Failed)
	}
	if eta := s.Remaining(); eta > 0 {
		fmt.Fprintf(&line, ", ETA %v", eta.Round(time.Second))
	}
	io.WriteString(p.writer, line.String())
}
