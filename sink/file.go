package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/profilescout/models"
)

// FileSink writes records to a local file. A ".json" path gets an indented
// array; any other extension gets one JSON object per line.
type FileSink struct {
	Path string
}

// NewFileSink returns a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (s *FileSink) Name() string { return "file" }

// Write replaces the file atomically: records go to a temporary file in the
// same directory which is then renamed over Path.
func (s *FileSink) Write(_ context.Context, records []*models.Record) error {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("sink: file: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if strings.EqualFold(filepath.Ext(s.Path), ".json") {
		err = encodeArray(w, records)
	} else {
		err = encodeLines(w, records)
	}
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("sink: file: write %s: %w", s.Path, err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("sink: file: rename: %w", err)
	}
	return nil
}

func encodeArray(w *bufio.Writer, records []*models.Record) error {
	if records == nil {
		records = []*models.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func encodeLines(w *bufio.Writer, records []*models.Record) error {
	for _, rec := range records {
		b, err := rec.MarshalJSON()
		if err != nil {
			return err
		}
		w.Write(b)
		w.WriteByte('\n')
	}
	return nil
}

// ReadFile loads records written by FileSink.
func ReadFile(path string) ([]*models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sink: file: read: %w", err)
	}
	var records []*models.Record
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("sink: file: decode %s: %w", path, err)
		}
		return records, nil
	}
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec := models.NewRecord()
		if err := rec.UnmarshalJSON([]byte(line)); err != nil {
			return nil, fmt.Errorf("sink: file: decode %s line %d: %w", path, i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
