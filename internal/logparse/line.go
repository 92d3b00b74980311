package logparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tinytelemetry/chatlog/internal/model"
)

// LineTerminator separates entries in the chat log.
const LineTerminator = "\r\n"

var (
	// ErrFormat marks every failure caused by the log format itself.
	ErrFormat = errors.New("log format changed")
	// ErrNoMatch means a line did not have the expected structure.
	ErrNoMatch = errors.New("line does not match entry pattern")
	// ErrUnknownColor means a line carried a color outside the channel table.
	ErrUnknownColor = errors.New("unknown channel color")
)

// LineRegex matches one entry: a timestamp segment, the message color
// attribute, and the message body.
var LineRegex = regexp.MustCompile(`^<font[^>]*> (.+?) </font> <font[^>]*color="([^"]+)">(.+)</font></br>$`)

var nbspReplacer = strings.NewReplacer("&nbsp;", " ", "&nbsp", " ")

// FormatError reports the line that broke parsing.
type FormatError struct {
	Line   string
	Reason error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %v: %q", ErrFormat, e.Reason, e.Line)
}

// Unwrap exposes both ErrFormat and the specific reason to errors.Is.
func (e *FormatError) Unwrap() []error {
	return []error{ErrFormat, e.Reason}
}

// Line is the raw triple extracted from one log line.
type Line struct {
	Timestamp string
	Color     string
	Message   string
}

// SplitLines splits decoded text on the line terminator and drops blank lines.
func SplitLines(text string) []string {
	parts := strings.Split(text, LineTerminator)
	lines := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}

// ParseLine extracts the timestamp, color and message from one line.
func ParseLine(line string) (Line, error) {
	m := LineRegex.FindStringSubmatch(line)
	if m == nil {
		return Line{}, &FormatError{Line: line, Reason: ErrNoMatch}
	}
	return Line{
		Timestamp: m[1],
		Color:     m[2],
		Message:   nbspReplacer.Replace(m[3]),
	}, nil
}

// ParseRecord parses and classifies one line.
func ParseRecord(line string) (model.Record, error) {
	l, err := ParseLine(line)
	if err != nil {
		return model.Record{}, err
	}
	ch, err := Classify(l.Color)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Line = line
		}
		return model.Record{}, err
	}
	return model.Record{
		Entry:   model.Entry{Message: l.Message, Color: l.Color, Timestamp: l.Timestamp},
		Channel: ch,
	}, nil
}

// ParseBatch parses and classifies lines in order. The first bad line
// aborts the batch; nothing from a failed batch is returned.
func ParseBatch(lines []string) ([]model.Record, error) {
	records := make([]model.Record, 0, len(lines))
	for _, line := range lines {
		rec, err := ParseRecord(line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
