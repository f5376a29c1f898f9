package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"

	"github.com/khaledhikmat/tandem-go/model"
)

type journalEntry struct {
	Time       string             `json:"time"`
	Seq        int64              `json:"seq"`
	Captured   string             `json:"captured"`
	Detections []journalDetection `json:"detections"`
}

type journalDetection struct {
	Label string `json:"label"`
	model.Detection
}

type journalRenderer struct {
	mu     sync.Mutex
	names  []string
	writer *lumberjack.Logger
}

// NewJournal appends one JSON line per frame that carries detections to a
// rotating log file at path.
func NewJournal(path string, names []string) IService {
	return &journalRenderer{
		names: names,
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		},
	}
}

func (r *journalRenderer) Render(_ context.Context, frame model.Frame, set model.DetectionSet) error {
	if len(set) == 0 {
		return nil
	}

	entry := journalEntry{
		Time:       time.Now().Format(time.RFC3339Nano),
		Seq:        frame.Seq,
		Captured:   frame.Timestamp.Format(time.RFC3339Nano),
		Detections: make([]journalDetection, 0, len(set)),
	}
	for _, d := range set {
		entry.Detections = append(entry.Detections, journalDetection{Label: Label(d, r.names), Detection: d})
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func (r *journalRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Close()
}
