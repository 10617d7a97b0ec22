package observe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// etaWindow is the rolling-window size for ETA estimation (§4.7).
const etaWindow = 10

// etaMinSamples is the minimum completions before an ETA is shown (§4.7:
// "does not display the ETA until at least 2 completions are recorded").
const etaMinSamples = 2

// ProgressEmitter writes one human-readable line per completed task to both
// the terminal and a progress log file, computing an ETA from a rolling
// window of the last 10 task durations.
type ProgressEmitter struct {
	queue     *writeQueue
	out       io.Writer
	file      *os.File
	total     int
	completed int
	durations []time.Duration
}

// NewProgressEmitter opens a progress log at path (truncating prior
// content) and writes terminal output to out. total is the task count for
// the whole run (all phases), used to size the "[n/total]" prefix and ETA.
func NewProgressEmitter(path string, out io.Writer, total int) (*ProgressEmitter, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	return &ProgressEmitter{queue: newWriteQueue(), out: out, file: f, total: total}, nil
}

// TaskDone records one task's completion and emits a progress line.
func (p *ProgressEmitter) TaskDone(label string, duration time.Duration, success bool) {
	p.queue.enqueue(func() {
		p.completed++
		p.durations = append(p.durations, duration)
		if len(p.durations) > etaWindow {
			p.durations = p.durations[len(p.durations)-etaWindow:]
		}
		line := p.formatLine(label, duration, success)
		fmt.Fprintln(p.out, line)
		fmt.Fprintln(p.file, line) // swallowed: a log-write failure never interrupts the pipeline (§7)
	})
}

func (p *ProgressEmitter) formatLine(label string, duration time.Duration, success bool) string {
	status := "ok"
	if !success {
		status = "FAIL"
	}
	line := fmt.Sprintf("[%d/%d] %s %-6s %s", p.completed, p.total, duration.Round(time.Millisecond), status, label)
	if eta, ok := p.eta(); ok {
		line += fmt.Sprintf(" eta=%s", eta.Round(time.Second))
	}
	return line
}

func (p *ProgressEmitter) eta() (time.Duration, bool) {
	if p.completed < etaMinSamples || len(p.durations) == 0 {
		return 0, false
	}
	remaining := p.total - p.completed
	if remaining <= 0 {
		return 0, false
	}
	var sum time.Duration
	for _, d := range p.durations {
		sum += d
	}
	avg := sum / time.Duration(len(p.durations))
	return avg * time.Duration(remaining), true
}

// Finalize flushes and closes the progress log.
func (p *ProgressEmitter) Finalize() error {
	p.queue.close()
	return p.file.Close()
}
