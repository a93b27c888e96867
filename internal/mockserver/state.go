package mockserver

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/lucsky/cuid"

	"pipeline-builder/internal/common/utils"
)

const (
	// previewRows is the head size listed with each dataset
	previewRows = 5
	timeLayout  = time.RFC3339Nano
)

// table is a parsed CSV
type table struct {
	header []string
	rows   [][]string
}

func parseCSV(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("invalid csv: missing header row")
	}
	return &table{header: records[0], rows: records[1:]}, nil
}

// records converts up to n rows (all when n <= 0) to JSON objects, numbers
// where a cell parses as one. Cells longer than maxChars are truncated when
// maxChars > 0.
func (t *table) records(n, maxChars int) []map[string]interface{} {
	rows := t.rows
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]interface{}, len(t.header))
		for i, col := range t.header {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			record[col] = cellValue(cell, maxChars)
		}
		out = append(out, record)
	}
	return out
}

func cellValue(cell string, maxChars int) interface{} {
	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		return n
	}
	if maxChars > 0 {
		return utils.TruncateText(cell, maxChars)
	}
	return cell
}

func (t *table) csvBytes() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(t.header)
	_ = w.WriteAll(t.rows)
	return buf.Bytes()
}

// withColumn returns a copy of t with one more constant column
func (t *table) withColumn(name, value string) *table {
	header := append(append([]string(nil), t.header...), name)
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = append(append([]string(nil), row...), value)
	}
	return &table{header: header, rows: rows}
}

type dataset struct {
	id        string
	filename  string
	createdAt time.Time
	data      *table
}

func (d *dataset) view(head []map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":                d.id,
		"original_filename": d.filename,
		"num_rows":          len(d.data.rows),
		"created_at":        d.createdAt.Format(timeLayout),
		"head":              head,
	}
}

type analysis struct {
	id         string
	datasetID  string
	status     string
	path       []map[string]interface{}
	log        []map[string]interface{}
	artifacts  map[string]*table
	errMsg     string
	createdAt  time.Time
	finishedAt *time.Time
}

func (a *analysis) summary() map[string]interface{} {
	out := map[string]interface{}{
		"id":            a.id,
		"dataset_id":    a.datasetID,
		"status":        a.status,
		"execution_log": a.log,
		"created_at":    a.createdAt.Format(timeLayout),
		"finished_at":   nil,
	}
	if a.finishedAt != nil {
		out["finished_at"] = a.finishedAt.Format(timeLayout)
	}
	return out
}

func (a *analysis) detail() map[string]interface{} {
	out := a.summary()
	artifacts := make(map[string]interface{}, len(a.artifacts))
	for key := range a.artifacts {
		artifacts[key] = fmt.Sprintf("artifacts/%s/%s.csv", a.id, key)
	}
	out["artifacts"] = artifacts
	out["error"] = nil
	if a.errMsg != "" {
		out["error"] = a.errMsg
	}
	return out
}

type graph struct {
	id        string
	name      string
	path      json.RawMessage
	createdAt time.Time
}

func newID(prefix string) string {
	return prefix + "_" + cuid.New()
}
