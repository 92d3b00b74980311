package ingest

import (
	"bytes"

	"github.com/tinytelemetry/chatlog/internal/logparse"
	"github.com/tinytelemetry/chatlog/internal/model"
	"github.com/tinytelemetry/chatlog/internal/sjis"
)

var terminator = []byte(logparse.LineTerminator)

// Processor decodes, splits and parses chat log spans.
type Processor struct{}

// NewProcessor creates a Processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process decodes raw, splits it into lines, drops up to skipHeader leading
// lines, then parses and classifies every remaining line. It returns the
// number of header lines actually dropped so a header split across spans can
// be finished on the next one. A single malformed line fails the whole span.
func (p *Processor) Process(raw []byte, skipHeader int) ([]model.Record, int, error) {
	lines := logparse.SplitLines(sjis.Decode(raw))
	skipped := min(max(skipHeader, 0), len(lines))
	lines = lines[skipped:]
	if len(lines) == 0 {
		return nil, skipped, nil
	}
	records, err := logparse.ParseBatch(lines)
	if err != nil {
		return nil, 0, err
	}
	return records, skipped, nil
}

// CompleteLength returns the length of the prefix of raw that ends with the
// last line terminator. Bytes after it belong to a line still being written.
// Shift_JIS trail bytes never fall in the ASCII control range, so the search
// is safe on undecoded bytes.
func CompleteLength(raw []byte) int {
	idx := bytes.LastIndex(raw, terminator)
	if idx < 0 {
		return 0
	}
	return idx + len(terminator)
}
