package registry

import (
	"testing"

	"chatty/internal/wire"
)

func TestRegisterConnectAlreadyOnline(t *testing.T) {
	r := New(8)
	if got := r.Register("alice", 10); got != Ok {
		t.Fatalf("Register = %v, want Ok", got)
	}
	if got := r.Connect("alice", 11); got != AlreadyOnline {
		t.Fatalf("Connect on already-online user = %v, want AlreadyOnline", got)
	}
}

func TestRegisterDisconnectConnect(t *testing.T) {
	r := New(8)
	r.Register("bob", 10)
	if got := r.Disconnect("bob", 10); got != Ok {
		t.Fatalf("Disconnect = %v, want Ok", got)
	}
	if got := r.Connect("bob", 20); got != Ok {
		t.Fatalf("Connect after disconnect = %v, want Ok", got)
	}
}

func TestRegisterUnregisterRegister(t *testing.T) {
	r := New(8)
	r.Register("carol", 10)
	if got := r.Unregister("carol", 10); got != Ok {
		t.Fatalf("Unregister = %v, want Ok", got)
	}
	if got := r.Register("carol", 11); got != Ok {
		t.Fatalf("second Register = %v, want Ok", got)
	}
}

func TestDoubleDisconnectIsNoOp(t *testing.T) {
	r := New(8)
	r.Register("dave", 10)
	if got := r.Disconnect("", 10); got != Ok {
		t.Fatalf("first implicit disconnect = %v, want Ok", got)
	}
	if got := r.Disconnect("", 10); got != NotOnline {
		t.Fatalf("second implicit disconnect = %v, want NotOnline", got)
	}
}

func TestLookupFD(t *testing.T) {
	r := New(8)
	if got := r.LookupFD("nobody"); got != -1 {
		t.Fatalf("LookupFD(unknown) = %d, want -1", got)
	}
	r.Register("erin", 5)
	r.Disconnect("erin", 5)
	if got := r.LookupFD("erin"); got != FDOffline {
		t.Fatalf("LookupFD(offline) = %d, want %d", got, FDOffline)
	}
	r.Connect("erin", 7)
	if got := r.LookupFD("erin"); got != 7 {
		t.Fatalf("LookupFD(online) = %d, want 7", got)
	}
}

func TestPostHistoryAllExcludesSender(t *testing.T) {
	r := New(8)
	r.Register("alice", 1)
	r.Register("bob", 2)
	r.Register("carol", 3)

	msg := wire.NewMessage(wire.TxtMessage, "alice", "", []byte("hi all"))
	n := r.PostHistoryAll("alice", msg)
	if n != 2 {
		t.Fatalf("PostHistoryAll posted to %d users, want 2", n)
	}
	if len(r.History("alice")) != 0 {
		t.Fatalf("sender must not receive its own broadcast in history")
	}
	if len(r.History("bob")) != 1 {
		t.Fatalf("bob should have 1 history entry")
	}
}

func TestHistorySnapshotIsIndependent(t *testing.T) {
	r := New(8)
	r.Register("alice", 1)
	r.PostHistory("alice", wire.NewMessage(wire.TxtMessage, "bob", "alice", []byte("hello")))

	snap := r.History("alice")
	snap[0].Payload[0] = 'X'

	snap2 := r.History("alice")
	if string(snap2[0].Payload) != "hello" {
		t.Fatalf("mutating a snapshot affected later reads: got %q", snap2[0].Payload)
	}
}

func TestHistoryCapacity(t *testing.T) {
	r := New(2)
	r.Register("alice", 1)
	for i := 0; i < 5; i++ {
		r.PostHistory("alice", wire.NewMessage(wire.TxtMessage, "bob", "alice", []byte{byte(i)}))
	}
	snap := r.History("alice")
	if len(snap) != 2 {
		t.Fatalf("history len = %d, want 2 (capacity)", len(snap))
	}
	if snap[0].Payload[0] != 3 || snap[1].Payload[0] != 4 {
		t.Fatalf("history did not drop oldest entries: got %v", snap)
	}
}

func TestUnregisterUnknown(t *testing.T) {
	r := New(8)
	if got := r.Unregister("ghost", 1); got != Unknown {
		t.Fatalf("Unregister(unknown) = %v, want Unknown", got)
	}
}

func TestOnlineCountInvariant(t *testing.T) {
	r := New(8)
	r.Register("a", 1)
	r.Register("b", 2)
	r.Disconnect("a", 1)
	if got := r.OnlineCount(); got != 1 {
		t.Fatalf("OnlineCount = %d, want 1", got)
	}
	fds := r.OnlineFDs("")
	if len(fds) != 1 || fds[0] != 2 {
		t.Fatalf("OnlineFDs = %v, want [2]", fds)
	}
}
