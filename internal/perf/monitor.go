// Package perf tracks rolling transcription performance for the status
// command: how many transcriptions have run, their average real-time factor,
// and the process's current resident memory.
package perf

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/msto63/speakd/internal/stt"
)

// Monitor accumulates TranscriptionResult.RealTimeFactor() samples.
// The zero value is ready to use.
type Monitor struct {
	mu     sync.Mutex
	last   stt.Result
	total  int
	rtfSum float64
}

// Record appends one completed transcription to the running totals.
func (m *Monitor) Record(r stt.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = r
	m.total++
	m.rtfSum += r.RealTimeFactor()
}

// Total returns the number of transcriptions recorded so far.
func (m *Monitor) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// AverageRTF returns the mean real-time factor across all recorded
// transcriptions, or 0 if none have been recorded yet.
func (m *Monitor) AverageRTF() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.total == 0 {
		return 0
	}
	return m.rtfSum / float64(m.total)
}

// Last returns the most recently recorded result.
func (m *Monitor) Last() stt.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// ResidentMemoryMB reads the process's current resident set size from
// /proc/self/status. It is diagnostic only: any failure to read or parse
// the file returns 0 rather than an error.
func ResidentMemoryMB() float64 {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0
		}
		return kb / 1024.0
	}
	return 0
}
