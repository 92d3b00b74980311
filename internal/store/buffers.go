package store

import (
	"fmt"

	"github.com/tinytelemetry/chatlog/internal/model"
)

type channelBuffer struct {
	entries []model.Entry
	updated bool
}

// Buffers holds every ingested entry, per channel, in arrival order.
// Nothing is evicted: bounded reads are a projection of the full history.
//
// Buffers is not synchronized; its owner serializes writes against reads.
type Buffers struct {
	channels [model.ChannelCount]channelBuffer
}

// New creates empty buffers for all seven channels.
func New() *Buffers {
	return &Buffers{}
}

func (b *Buffers) buffer(ch model.Channel) *channelBuffer {
	if !ch.Valid() {
		panic(fmt.Sprintf("store: channel %d out of range", int(ch)))
	}
	return &b.channels[ch]
}

// Append adds rec to All and to its own channel and marks both updated.
func (b *Buffers) Append(rec model.Record) {
	if rec.Channel == model.All {
		panic("store: record classified as All")
	}
	own := b.buffer(rec.Channel)
	all := &b.channels[model.All]

	all.entries = append(all.entries, rec.Entry)
	all.updated = true
	own.entries = append(own.entries, rec.Entry)
	own.updated = true
}

// AppendAll appends records in order.
func (b *Buffers) AppendAll(records []model.Record) {
	for _, rec := range records {
		b.Append(rec)
	}
}

// Read returns the last limit entries of ch, or all of them when limit <= 0.
// The returned slice is a copy.
func (b *Buffers) Read(ch model.Channel, limit int) model.View {
	buf := b.buffer(ch)
	entries := buf.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]model.Entry, len(entries))
	copy(out, entries)
	return model.View{
		Channel: ch,
		Entries: out,
		Updated: buf.updated,
		Total:   len(buf.entries),
	}
}

// ResetFlags clears the updated flag of every channel.
func (b *Buffers) ResetFlags() {
	for i := range b.channels {
		b.channels[i].updated = false
	}
}

// Updated reports whether ch received entries since the last ResetFlags.
func (b *Buffers) Updated(ch model.Channel) bool {
	return b.buffer(ch).updated
}

// Len returns the number of entries stored for ch.
func (b *Buffers) Len(ch model.Channel) int {
	return len(b.buffer(ch).entries)
}

// Entries returns the stored slice for ch without copying.
// Callers must not modify it and must not retain it past the owner's lock.
func (b *Buffers) Entries(ch model.Channel) []model.Entry {
	return b.buffer(ch).entries
}
