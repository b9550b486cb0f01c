// Package history implements a bounded, per-user message FIFO: a
// ring-style queue capped at a configured size that stores deep copies
// and hands out deep copies.
package history

import "chatty/internal/wire"

// History is a bounded FIFO of wire.Message values belonging to one
// user. It is not itself safe for concurrent use — every operation is
// expected to run under a caller-held mutex, so History has no lock of
// its own.
type History struct {
	messages []wire.Message
	cap      int
}

// New creates a History with the given capacity. A non-positive
// capacity is treated as zero: every push drops immediately.
func New(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{
		messages: make([]wire.Message, 0, capacity),
		cap:      capacity,
	}
}

// copyMessage deep-copies a Message's payload so neither the stored
// entry nor a returned snapshot alias the caller's backing array.
func copyMessage(m wire.Message) wire.Message {
	var payload []byte
	if m.Payload != nil {
		payload = make([]byte, len(m.Payload))
		copy(payload, m.Payload)
	}
	m.Payload = payload
	return m
}

// Push deep-copies msg and appends it. If the history is already at
// capacity, the oldest entry is dropped first.
func (h *History) Push(msg wire.Message) {
	if h.cap == 0 {
		return
	}
	if len(h.messages) >= h.cap {
		h.messages = h.messages[1:]
	}
	h.messages = append(h.messages, copyMessage(msg))
}

// Snapshot returns a new slice containing deep copies of every
// message currently stored, oldest first. Mutating the result never
// affects the History.
func (h *History) Snapshot() []wire.Message {
	out := make([]wire.Message, len(h.messages))
	for i, m := range h.messages {
		out[i] = copyMessage(m)
	}
	return out
}

// Len reports the current number of stored messages.
func (h *History) Len() int { return len(h.messages) }

// Destroy releases the backing storage. Go's GC makes this a no-op
// beyond nilling the slice, but it gives registry.Unregister a single,
// named place to retire a user's history.
func (h *History) Destroy() {
	h.messages = nil
}
