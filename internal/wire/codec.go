package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// nameFieldSize is the on-wire width of a nickname or filename field:
// MaxNameLength data bytes plus one reserved byte for a trailing null
// terminator.
const nameFieldSize = MaxNameLength + 1

// ErrFrameTooLarge guards against a corrupt or hostile length field
// turning a single GETPREVMSGS/POSTFILE frame into an unbounded
// allocation; the caller-supplied cap (MaxMsgSize/MaxFileSize) is
// enforced by the engine, this is just a hard backstop.
var ErrFrameTooLarge = errors.New("wire: frame length exceeds hard cap")

// hardFrameCap bounds any single payload read regardless of configured
// limits — large enough never to reject a legitimate chatty frame,
// small enough to stop a corrupt length field from exhausting memory.
const hardFrameCap = 256 << 20 // 256MiB

func readFull(r io.Reader, buf []byte) error {
	for {
		_, err := io.ReadFull(r, buf)
		if err == nil {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}
}

func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func readFixedName(r io.Reader) (string, error) {
	buf := make([]byte, nameFieldSize)
	if err := readFull(r, buf); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

func writeFixedName(w io.Writer, name string) error {
	if err := validateName("name", name); err != nil {
		return err
	}
	buf := make([]byte, nameFieldSize)
	copy(buf, name)
	return writeFull(w, buf)
}

// ReadHeader reads the operation code and sender nickname from r.
// Returns io.EOF when the peer closes the connection before the header
// is complete, whether before its first byte or part-way through it;
// any other error is fatal for the frame and the caller must treat it
// as a dead connection.
func ReadHeader(r io.Reader) (Header, error) {
	var opBuf [4]byte
	if err := readFull(r, opBuf[:]); err != nil {
		return Header{}, err
	}
	op := Op(binary.NativeEndian.Uint32(opBuf[:]))

	sender, err := readFixedName(r)
	if err != nil {
		return Header{}, err
	}
	return Header{Op: op, Sender: sender}, nil
}

// WriteHeader writes op and sender to w.
func WriteHeader(w io.Writer, h Header) error {
	if err := validateName("sender", h.Sender); err != nil {
		return err
	}
	var opBuf [4]byte
	binary.NativeEndian.PutUint32(opBuf[:], uint32(h.Op))
	if err := writeFull(w, opBuf[:]); err != nil {
		return err
	}
	return writeFixedName(w, h.Sender)
}

// ReadData reads the receiver nickname, the 32-bit payload length, and
// then exactly that many payload bytes. A length of 0 means no payload
// bytes follow.
func ReadData(r io.Reader) (receiver string, payload []byte, err error) {
	receiver, err = readFixedName(r)
	if err != nil {
		return "", nil, err
	}

	var lenBuf [4]byte
	if err = readFull(r, lenBuf[:]); err != nil {
		return "", nil, err
	}
	n := binary.NativeEndian.Uint32(lenBuf[:])
	if n > hardFrameCap {
		return "", nil, ErrFrameTooLarge
	}
	if n == 0 {
		return receiver, nil, nil
	}

	payload = make([]byte, n)
	if err = readFull(r, payload); err != nil {
		return "", nil, err
	}
	return receiver, payload, nil
}

// WriteData writes receiver, len(payload), then payload.
func WriteData(w io.Writer, receiver string, payload []byte) error {
	if err := writeFixedName(w, receiver); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.NativeEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if err := writeFull(w, lenBuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return writeFull(w, payload)
}

// ReadMessage reads a full frame (header + data) in one call.
func ReadMessage(r io.Reader) (Message, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return Message{}, err
	}
	receiver, payload, err := ReadData(r)
	if err != nil {
		return Message{}, err
	}
	return Message{Header: hdr, Receiver: receiver, Payload: payload}, nil
}

// WriteMessage writes a full frame (header + data) in one call.
func WriteMessage(w io.Writer, msg Message) error {
	if err := WriteHeader(w, msg.Header); err != nil {
		return err
	}
	return WriteData(w, msg.Receiver, msg.Payload)
}
