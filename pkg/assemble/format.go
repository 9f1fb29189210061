package assemble

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/japaniel/relex/pkg/relation"
)

// Output formats understood by NewWriter.
const (
	FormatTSV   = "tsv"
	FormatJSONL = "jsonl"
)

// Writer streams triples in one output format.
type Writer interface {
	Write(triples []relation.Triple) error
	Flush() error
}

// NewWriter returns a buffered writer for format.
func NewWriter(w io.Writer, format string) (Writer, error) {
	bw := bufio.NewWriter(w)
	switch strings.ToLower(format) {
	case "", FormatTSV:
		return &tsvWriter{w: bw}, nil
	case FormatJSONL:
		return &jsonlWriter{w: bw, enc: json.NewEncoder(bw)}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

type tsvWriter struct{ w *bufio.Writer }

func (t *tsvWriter) Write(triples []relation.Triple) error {
	for _, tr := range triples {
		if _, err := t.w.WriteString(tr.TSV() + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (t *tsvWriter) Flush() error { return t.w.Flush() }

type jsonlWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func (j *jsonlWriter) Write(triples []relation.Triple) error {
	for _, tr := range triples {
		if err := j.enc.Encode(tr); err != nil {
			return fmt.Errorf("failed to encode triple: %w", err)
		}
	}
	return nil
}

func (j *jsonlWriter) Flush() error { return j.w.Flush() }

// WriteTSV writes one "subject\tlabel\tobject" line per triple.
func WriteTSV(w io.Writer, triples []relation.Triple) error {
	tw, _ := NewWriter(w, FormatTSV)
	if err := tw.Write(triples); err != nil {
		return err
	}
	return tw.Flush()
}
