// Package registry implements the server's user registry: nickname
// lifecycle, online presence, the fd→nick reverse index needed for
// implicit disconnects, and bounded per-user history, all behind one
// mutex.
package registry

import (
	"sync"

	"chatty/internal/history"
	"chatty/internal/wire"
)

// FDOffline is the sentinel fd value stored on a User record while the
// user is registered but not connected: 0 means "exists but offline",
// never a live socket descriptor.
const FDOffline = 0

// User is one registered nickname's presence and history.
type User struct {
	Nick    string
	FD      int
	History *history.History
}

// Online reports whether the user currently has a live connection.
func (u *User) Online() bool { return u.FD != FDOffline }

// Result is the outcome of a registry mutation, one of the named
// constants below; each operation returns only the subset relevant to
// it.
type Result int

const (
	Ok Result = iota
	AlreadyExists
	Unknown
	AlreadyOnline
	NotOnline
	InternalError
)

// Registry is the shared, mutex-protected user table. All exported
// methods acquire the single mutex for their entire duration — never
// nested with any other lock in this program.
type Registry struct {
	mu          sync.Mutex
	byName      map[string]*User
	byFd        map[int]string
	onlineCount int
	histCap     int
}

// New creates an empty Registry. historyCap bounds every user's
// History.
func New(historyCap int) *Registry {
	return &Registry{
		byName:  make(map[string]*User),
		byFd:    make(map[int]string),
		histCap: historyCap,
	}
}

// Register creates a new online user record. Fails AlreadyExists if
// the nickname is already registered.
func (r *Registry) Register(nick string, fd int) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[nick]; exists {
		return AlreadyExists
	}
	r.byName[nick] = &User{Nick: nick, FD: fd, History: history.New(r.histCap)}
	r.byFd[fd] = nick
	r.onlineCount++
	return Ok
}

// Connect marks an existing, currently-offline user as online on fd.
func (r *Registry) Connect(nick string, fd int) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.byName[nick]
	if !exists {
		return Unknown
	}
	if u.FD != FDOffline {
		return AlreadyOnline
	}
	u.FD = fd
	r.byFd[fd] = nick
	r.onlineCount++
	return Ok
}

// Disconnect marks a user offline. If nick is empty, the nickname is
// resolved from fd via the reverse index (an implicit disconnect —
// the caller only knows the fd whose read/write just failed). Calling
// Disconnect twice for the same fd is a no-op the second time: once
// the first call clears byFd[fd], the second call's implicit lookup
// finds nothing and returns NotOnline.
func (r *Registry) Disconnect(nick string, fd int) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nick == "" {
		n, ok := r.byFd[fd]
		if !ok {
			return NotOnline
		}
		nick = n
	}

	u, exists := r.byName[nick]
	if !exists {
		return Unknown
	}
	if u.FD == FDOffline {
		return NotOnline
	}
	delete(r.byFd, u.FD)
	u.FD = FDOffline
	r.onlineCount--
	return Ok
}

// Unregister removes a user record entirely, destroying its history.
func (r *Registry) Unregister(nick string, fd int) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.byName[nick]
	if !exists {
		return Unknown
	}
	if u.FD != FDOffline {
		delete(r.byFd, u.FD)
		r.onlineCount--
	}
	u.History.Destroy()
	delete(r.byName, nick)
	return Ok
}

// LookupFD returns -1 if nick is unknown, 0 (FDOffline) if nick exists
// but is offline, or the online fd otherwise.
func (r *Registry) LookupFD(nick string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.byName[nick]
	if !exists {
		return -1
	}
	return u.FD
}

// OnlineList returns a snapshot of every currently-online nickname,
// each padded to wire.MaxNameLength+1 bytes so the engine can write it
// straight onto the wire as the USRLIST/REGISTER/CONNECT reply
// payload.
func (r *Registry) OnlineList() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	const field = wire.MaxNameLength + 1
	out := make([]byte, 0, field*r.onlineCount)
	for nick, user := range r.byName {
		if user.FD == FDOffline {
			continue
		}
		padded := make([]byte, field)
		copy(padded, nick)
		out = append(out, padded...)
	}
	return out
}

// OnlineFDs returns every online fd except the one belonging to
// exceptNick (used by POSTTXTALL to fan a broadcast out to every peer
// but the sender).
func (r *Registry) OnlineFDs(exceptNick string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	fds := make([]int, 0, r.onlineCount)
	for nick, user := range r.byName {
		if nick == exceptNick || user.FD == FDOffline {
			continue
		}
		fds = append(fds, user.FD)
	}
	return fds
}

// PostHistory pushes msg onto nick's history. The caller has already
// set msg's op to its delivered form (TxtMessage/FileMessage).
func (r *Registry) PostHistory(nick string, msg wire.Message) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.byName[nick]
	if !exists {
		return Unknown
	}
	u.History.Push(msg)
	return Ok
}

// PostHistoryAll pushes a copy of msg into every user's history except
// sender, returning the count of successful pushes. A push never
// fails in normal operation.
func (r *Registry) PostHistoryAll(sender string, msg wire.Message) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for nick, u := range r.byName {
		if nick == sender {
			continue
		}
		u.History.Push(msg)
		n++
	}
	return n
}

// History returns a deep-copy snapshot of nick's history, or nil if
// nick is unknown.
func (r *Registry) History(nick string) []wire.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.byName[nick]
	if !exists {
		return nil
	}
	return u.History.Snapshot()
}

// OnlineCount returns the number of currently-online users, used by
// the dispatcher's admission control.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineCount
}
