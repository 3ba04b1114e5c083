// Package report persists scan results as CSV and JSON files named by
// run ID, for downstream review and diffing between runs.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"TrendScout/internal/model"
)

// Summary is the JSON document written for one run.
type Summary struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Scanned     int               `json:"scanned"`
	Candidates  []model.Candidate `json:"candidates"`
	Skips       []model.Skip      `json:"skips"`
}

// Writer writes run outputs into a single directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

var csvHeader = []string{
	"symbol", "date", "close", "sma20", "sma50", "rsi14", "vol_avg20", "score", "reason_tags",
}

// Write persists the summary as candidates_<runID>.csv and .json and
// returns both paths.
func (w *Writer) Write(sum *Summary) (csvPath, jsonPath string, err error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	csvPath = filepath.Join(w.dir, fmt.Sprintf("candidates_%s.csv", sum.RunID))
	if err := w.writeCSV(csvPath, sum.Candidates); err != nil {
		return "", "", err
	}

	jsonPath = filepath.Join(w.dir, fmt.Sprintf("candidates_%s.json", sum.RunID))
	if err := w.writeJSON(jsonPath, sum); err != nil {
		return "", "", err
	}
	return csvPath, jsonPath, nil
}

func (w *Writer) writeCSV(path string, candidates []model.Candidate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range candidates {
		row := []string{
			c.Symbol,
			c.Date.Format(model.DateKey),
			strconv.FormatFloat(c.Close, 'f', 2, 64),
			strconv.FormatFloat(c.SMA20, 'f', 2, 64),
			strconv.FormatFloat(c.SMA50, 'f', 2, 64),
			strconv.FormatFloat(c.RSI14, 'f', 1, 64),
			strconv.FormatFloat(c.VolAvg20, 'f', 0, 64),
			strconv.Itoa(c.Score),
			strings.Join(c.ReasonTags, "|"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", c.Symbol, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

func (w *Writer) writeJSON(path string, sum *Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
