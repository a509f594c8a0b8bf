package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/physitutor/backend/internal/models"
)

// writeQueueSize bounds the async JSONL writer. When the queue is
// full the entry is dropped with a warning instead of blocking the
// submit path.
const writeQueueSize = 256

type jsonlWrite struct {
	file  string
	entry interface{}
}

// Recorder keeps the append-only submission history. The in-memory
// index is the query source of truth; JSONL persistence is best-effort
// and asynchronous, so a failed or slow disk write never delays or
// fails the caller.
type Recorder struct {
	mu        sync.RWMutex
	bySession map[string][]models.SubmissionRecord

	logFile     string
	summaryFile string
	queue       chan jsonlWrite
	done        chan struct{}
	sink        RecordSink
}

// RecordSink receives each submission record for database persistence.
// Failures are logged, never propagated.
type RecordSink interface {
	InsertRecord(rec models.SubmissionRecord) error
}

// NewRecorder creates a recorder writing JSONL files under logsDir.
// An empty logsDir disables file persistence (used by tests). The sink
// may be nil.
func NewRecorder(logsDir string, sink RecordSink) (*Recorder, error) {
	r := &Recorder{
		bySession: make(map[string][]models.SubmissionRecord),
		sink:      sink,
	}

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create logs dir: %w", err)
		}
		r.logFile = filepath.Join(logsDir, "dialogue_logs.jsonl")
		r.summaryFile = filepath.Join(logsDir, "session_summaries.jsonl")
	}

	r.queue = make(chan jsonlWrite, writeQueueSize)
	r.done = make(chan struct{})
	go r.writeLoop()
	return r, nil
}

// Append records one submission. The memory append is synchronous so
// Query observes it immediately; persistence happens off the request
// path.
func (r *Recorder) Append(rec models.SubmissionRecord) {
	r.mu.Lock()
	r.bySession[rec.SessionID] = append(r.bySession[rec.SessionID], rec)
	r.mu.Unlock()

	if r.logFile != "" {
		r.enqueue(jsonlWrite{file: r.logFile, entry: rec})
	}
	if r.sink != nil {
		go func() {
			if err := r.sink.InsertRecord(rec); err != nil {
				log.Printf("[history] record insert failed: %v", err)
			}
		}()
	}
}

// AppendSummary writes the end-of-session summary line.
func (r *Recorder) AppendSummary(summary models.SessionSummary) {
	if r.summaryFile != "" {
		r.enqueue(jsonlWrite{file: r.summaryFile, entry: summary})
	}
}

// Query returns the session's records in append order.
func (r *Recorder) Query(sessionID string) []models.SubmissionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := r.bySession[sessionID]
	out := make([]models.SubmissionRecord, len(records))
	copy(out, records)
	return out
}

// QuestionStats aggregates per-step accuracy for one question across
// all recorded sessions.
func (r *Recorder) QuestionStats(questionID string) models.QuestionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.QuestionStats{
		QuestionID: questionID,
		StepStats:  make(map[int]models.StepStat),
	}
	correct := 0
	for _, records := range r.bySession {
		for _, rec := range records {
			if rec.QuestionID != questionID {
				continue
			}
			step := stats.StepStats[rec.StepID]
			step.Total++
			if rec.IsCorrect {
				step.Correct++
				correct++
			}
			stats.StepStats[rec.StepID] = step
			stats.TotalAttempts++
		}
	}
	if stats.TotalAttempts > 0 {
		stats.OverallAccuracy = float64(correct) / float64(stats.TotalAttempts)
	}
	return stats
}

// Close flushes queued writes and stops the writer goroutine.
func (r *Recorder) Close() {
	close(r.queue)
	<-r.done
}

func (r *Recorder) enqueue(w jsonlWrite) {
	select {
	case r.queue <- w:
	default:
		log.Printf("[history] write queue full, dropping log entry for %s", w.file)
	}
}

func (r *Recorder) writeLoop() {
	defer close(r.done)
	for w := range r.queue {
		if err := appendJSONL(w.file, w.entry); err != nil {
			log.Printf("[history] jsonl write failed: %v", err)
		}
	}
}

func appendJSONL(path string, entry interface{}) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}
