package dispatch

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatty/internal/engine"
	"chatty/internal/registry"
	"chatty/internal/sendlock"
	"chatty/internal/server"
	"chatty/internal/stats"
	"chatty/internal/storage"
	"chatty/internal/wire"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	reg := registry.New(8)
	st := stats.New()
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	locks := sendlock.NewLocks()
	conns := engine.NewConns()
	eng := engine.New(reg, st, store, locks, conns, engine.Config{MaxMsgSize: 1024, MaxFileSize: 64}, zerolog.Nop())
	guard := server.NewAdmissionGuard(4, zerolog.Nop())

	sockPath := filepath.Join(t.TempDir(), "chatty.sock")
	d, err := New(sockPath, eng, guard, 2, 16, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return d, sockPath
}

func TestRegisterRoundTripOverSocket(t *testing.T) {
	d, sockPath := newTestDispatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", sockPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := wire.NewMessage(wire.RegisterOp, "alice", "", nil)
	if err := wire.WriteMessage(conn, req); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply, err := wire.ReadMessage(conn)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if reply.Header.Op != wire.OpOK {
		t.Fatalf("got op %v, want OP_OK", reply.Header.Op)
	}
}

func TestAdmissionControlRejectsBeyondCapacity(t *testing.T) {
	reg := registry.New(8)
	st := stats.New()
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	locks := sendlock.NewLocks()
	conns := engine.NewConns()
	eng := engine.New(reg, st, store, locks, conns, engine.Config{MaxMsgSize: 1024, MaxFileSize: 64}, zerolog.Nop())
	guard := server.NewAdmissionGuard(1, zerolog.Nop())

	sockPath := filepath.Join(t.TempDir(), "chatty.sock")
	d, err := New(sockPath, eng, guard, 1, 16, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	var first net.Conn
	var err2 error
	for i := 0; i < 50; i++ {
		first, err2 = net.Dial("unix", sockPath)
		if err2 == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err2 != nil {
		t.Fatalf("dial first: %v", err2)
	}
	defer first.Close()

	// Admission control gates on the registry's online-user count, not
	// raw accepted sockets, so the first connection must register
	// before the second dial can observe the limit.
	if err := wire.WriteMessage(first, wire.NewMessage(wire.RegisterOp, "alice", "", nil)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := wire.ReadMessage(first); err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	second, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	buf := make([]byte, 1)
	if n, err := second.Read(buf); n != 0 && err == nil {
		t.Fatalf("expected the rejected connection to be closed, got %d bytes", n)
	}
}
