package wire

import "fmt"

// Header is the fixed part of every frame: the requested/replied
// operation and the sender's nickname, null-padded to MaxNameLength+1
// bytes on the wire.
type Header struct {
	Op     Op
	Sender string
}

// Message is the fully decoded, in-memory form of one frame: a header
// plus the data part (receiver nickname, payload). It is the value
// type passed between the wire codec, the engine, and the registry —
// registry.History stores copies of this type.
type Message struct {
	Header   Header
	Receiver string
	Payload  []byte
}

// OpCode is a convenience accessor so callers can write msg.OpCode()
// instead of msg.Header.Op in the common case.
func (m Message) OpCode() Op { return m.Header.Op }

// Sender is a convenience accessor mirroring OpCode above.
func (m Message) Sender() string { return m.Header.Sender }

// NewMessage builds a Message ready to hand to the codec for writing.
func NewMessage(op Op, sender, receiver string, payload []byte) Message {
	return Message{
		Header:   Header{Op: op, Sender: sender},
		Receiver: receiver,
		Payload:  payload,
	}
}

// validateName checks a nickname fits the fixed-width wire
// field, returning an error instead of silently truncating it (a
// truncated nickname would be corrupted, not valid).
func validateName(field, name string) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("wire: %s %q exceeds MaxNameLength (%d)", field, name, MaxNameLength)
	}
	return nil
}
