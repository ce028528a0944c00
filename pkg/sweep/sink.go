package sweep

import (
	"encoding/json"
	"io"
)

// RowSink receives every emitted row, in addition to the CSV.
type RowSink interface {
	WriteRow(row any) error
	Close() error
}

// JSONSink streams rows as an indented JSON array.
type JSONSink struct {
	w io.WriteCloser
	n int
}

func NewJSONSink(w io.WriteCloser) (*JSONSink, error) {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return nil, err
	}
	return &JSONSink{w: w}, nil
}

func (j *JSONSink) WriteRow(row any) error {
	b, err := json.MarshalIndent(row, "  ", "  ")
	if err != nil {
		return err
	}
	if j.n > 0 {
		if _, err := io.WriteString(j.w, ",\n"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(j.w, "  "); err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	j.n++
	return nil
}

// Close terminates the array and closes the underlying writer.
func (j *JSONSink) Close() error {
	if _, err := io.WriteString(j.w, "\n]\n"); err != nil {
		_ = j.w.Close()
		return err
	}
	return j.w.Close()
}
