package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout names output files after the writer's creation time
const TimestampLayout = "2006-01-02 15:04:05.000000"

// UnsupportedDataTypeError is returned when Write gets something that is
// neither a JSON object nor a list of them.
type UnsupportedDataTypeError struct {
	Value any
}

// Error implements the error interface
func (e *UnsupportedDataTypeError) Error() string {
	return fmt.Sprintf("data type %T is not supported for ingestion", e.Value)
}

// Option configures a DataWriter
type Option func(*DataWriter)

// WithRootDir places the output tree under dir instead of the working directory
func WithRootDir(dir string) Option {
	return func(w *DataWriter) {
		w.root = dir
	}
}

// WithClock replaces the clock used to name the output file
func WithClock(now func() time.Time) Option {
	return func(w *DataWriter) {
		w.now = now
	}
}

// DataWriter appends records as JSON lines to {api}/{coin}/{timestamp}.json.
// The file name is fixed when the writer is created; every Write appends to it.
type DataWriter struct {
	coin     string
	api      string
	root     string
	now      func() time.Time
	filename string
}

// New creates a writer for one coin and API
func New(coin, api string, opts ...Option) *DataWriter {
	w := &DataWriter{
		coin: coin,
		api:  api,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.filename = filepath.Join(w.root, api, coin, w.now().Format(TimestampLayout)+".json")
	return w
}

// Filename returns the file all writes go to
func (w *DataWriter) Filename() string {
	return w.filename
}

// Write appends data to the file. A map becomes one line; a list writes its
// elements in order, flattening nested lists. Elements already written are
// kept if a later one turns out to be unsupported.
func (w *DataWriter) Write(data any) error {
	switch v := data.(type) {
	case map[string]any:
		return w.writeRow(v)
	case []map[string]any:
		for _, row := range v {
			if err := w.writeRow(row); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, element := range v {
			if err := w.Write(element); err != nil {
				return err
			}
		}
		return nil
	default:
		return &UnsupportedDataTypeError{Value: data}
	}
}

func (w *DataWriter) writeRow(row map[string]any) error {
	line, err := encodeLine(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.filename), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.filename, err)
	}

	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", w.filename, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.filename, err)
	}

	slog.Debug("wrote row", "file", w.filename, "bytes", len(line))
	return nil
}

// encodeLine renders row on a single line with ", " and ": " separators,
// terminated by a newline.
func encodeLine(row map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(row); err != nil {
		return nil, err
	}

	compact := buf.Bytes() // Encode appends '\n'
	out := make([]byte, 0, len(compact)+len(compact)/4)
	inString := false
	escaped := false
	for _, c := range compact {
		out = append(out, c)
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && (c == ':' || c == ','):
			out = append(out, ' ')
		}
	}
	return out, nil
}
