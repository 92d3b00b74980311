package ingest

import "github.com/tinytelemetry/chatlog/internal/model"

// SpanProcessor turns one raw byte span of the chat log into classified records.
type SpanProcessor interface {
	Process(raw []byte, skipHeader int) ([]model.Record, int, error)
}

var _ SpanProcessor = (*Processor)(nil)
