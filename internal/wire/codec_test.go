package wire

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Header{Op: RegisterOp, Sender: "alice"}
	if err := WriteHeader(&buf, want); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDataRoundTripZeroLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteData(&buf, "bob", nil); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	receiver, payload, err := ReadData(&buf)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if receiver != "bob" || len(payload) != 0 {
		t.Fatalf("got receiver=%q payload=%v", receiver, payload)
	}
}

func TestDataRoundTripWithPayload(t *testing.T) {
	var buf bytes.Buffer
	want := []byte("hello, world")
	if err := WriteData(&buf, "carol", want); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	receiver, payload, err := ReadData(&buf)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if receiver != "carol" || !bytes.Equal(payload, want) {
		t.Fatalf("got receiver=%q payload=%q", receiver, payload)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := NewMessage(PostTxtOp, "alice", "bob", []byte("hi"))
	if err := WriteMessage(&buf, want); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.Header != want.Header || got.Receiver != want.Receiver || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNameAtMaxLengthRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	name := strings.Repeat("n", MaxNameLength)
	if err := WriteHeader(&buf, Header{Op: RegisterOp, Sender: name}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.Sender != name {
		t.Fatalf("got sender %q, want %q", got.Sender, name)
	}
}

func TestNameOverMaxLengthRejected(t *testing.T) {
	var buf bytes.Buffer
	name := strings.Repeat("n", MaxNameLength+1)
	if err := WriteHeader(&buf, Header{Op: RegisterOp, Sender: name}); err == nil {
		t.Fatal("expected error for over-length name")
	}
}

func TestReadHeaderOrderlyCloseReturnsEOF(t *testing.T) {
	var buf bytes.Buffer
	_, err := ReadHeader(&buf)
	if err != io.EOF {
		t.Fatalf("ReadHeader on empty reader = %v, want io.EOF", err)
	}
}
