// Package journal records search activity: a CSV row per evaluation and a
// summary record per completed search.
package journal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/simtune/internal/evaluator"
	"github.com/GoSim-25-26J-441/simtune/internal/params"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"github.com/gocarina/gocsv"
)

// Row is one evaluation in the CSV journal.
type Row struct {
	RunID      string  `csv:"run_id"`
	Generation int     `csv:"generation"`
	Index      int     `csv:"index"`
	Fitness    float64 `csv:"fitness"`
	Error      string  `csv:"error"`
	ElapsedMs  int64   `csv:"elapsed_ms"`
	Parameters string  `csv:"parameters"`
}

// CSVJournal appends evaluation rows to a CSV file. A nil journal discards
// everything, so callers need not check whether journaling is enabled.
type CSVJournal struct {
	runID string
	space *params.Space

	mu            sync.Mutex
	file          *os.File
	headerWritten bool
}

// NewCSVJournal opens path for appending. It returns nil when path is empty.
// An existing non-empty file is assumed to carry the header already.
func NewCSVJournal(path, runID string, space *params.Space) (*CSVJournal, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &CSVJournal{
		runID:         runID,
		space:         space,
		file:          f,
		headerWritten: info.Size() > 0,
	}, nil
}

// Write appends one row, preceded by the header on the first write.
func (j *CSVJournal) Write(row Row) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	records := []Row{row}
	if !j.headerWritten {
		if err := gocsv.Marshal(records, j.file); err != nil {
			return fmt.Errorf("writing journal: %w", err)
		}
		j.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, j.file); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	return nil
}

// Observe records a completed evaluation. It satisfies evaluator.Observer.
func (j *CSVJournal) Observe(ev evaluator.Evaluation) {
	if j == nil {
		return
	}
	row := Row{
		RunID:      j.runID,
		Generation: ev.Generation,
		Index:      ev.Index,
		Fitness:    ev.Fitness,
		ElapsedMs:  ev.Elapsed.Milliseconds(),
		Parameters: FormatAssignments(j.space.Describe(ev.Candidate)),
	}
	if ev.Err != nil {
		row.Error = ev.Err.Error()
	}
	if err := j.Write(row); err != nil {
		logger.Warn("journal write failed", "error", err)
	}
}

// Close closes the file.
func (j *CSVJournal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// FormatAssignments renders name=value pairs separated by semicolons.
func FormatAssignments(as []params.Assignment) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.Name + "=" + strconv.FormatFloat(a.Value, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}
