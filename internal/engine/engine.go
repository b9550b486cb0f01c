// Package engine implements the request protocol engine: one call per
// decoded frame, dispatching on its opcode to the registry/history/
// storage/stats side effects and the reply each of the ten client
// operations produces.
//
// Each handler follows the same ordering of side effects: the history
// write or queue increment happens before the reply is sent, and the
// reply is sent before any best-effort direct delivery to an online
// peer is attempted.
package engine

import (
	"io"

	"github.com/rs/zerolog"

	"chatty/internal/registry"
	"chatty/internal/sendlock"
	"chatty/internal/stats"
	"chatty/internal/storage"
	"chatty/internal/wire"
)

// Outcome tells the caller (the dispatcher's worker loop) what to do
// with the fd next: OK means keep it in the readiness set, Failed
// means treat it as an implicit disconnect and close it.
type Outcome int

const (
	OK Outcome = iota
	Failed
)

// Engine owns every collaborator a request handler needs and exposes
// a single Execute entry point.
type Engine struct {
	reg   *registry.Registry
	st    *stats.Stats
	store *storage.Store
	locks *sendlock.Locks
	conns *Conns

	maxMsgSize    int
	maxFileSizeKB int

	logger zerolog.Logger
}

// Config bundles Engine's tunables, mirroring the relevant fields of
// config.Config so the engine doesn't need to import the config
// package just to read two integers.
type Config struct {
	MaxMsgSize  int
	MaxFileSize int // kilobytes
}

// New creates an Engine. conns lets handlers deliver directly to other
// online fds; it is populated and maintained by the dispatcher.
func New(reg *registry.Registry, st *stats.Stats, store *storage.Store, locks *sendlock.Locks, conns *Conns, cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		reg:           reg,
		st:            st,
		store:         store,
		locks:         locks,
		conns:         conns,
		maxMsgSize:    cfg.MaxMsgSize,
		maxFileSizeKB: cfg.MaxFileSize,
		logger:        logger,
	}
}

// Conns exposes the engine's connection tracker so the dispatcher can
// register and forget fds as it accepts and closes them.
func (e *Engine) Conns() *Conns { return e.conns }

// OnlineCount reports the number of currently-online registered users,
// for the dispatcher's admission control.
func (e *Engine) OnlineCount() int { return e.reg.OnlineCount() }

// Execute processes one decoded frame read from fd over conn,
// dispatching by opcode and returning the Outcome the dispatcher's
// worker loop should act on.
func (e *Engine) Execute(conn io.ReadWriter, fd int, msg wire.Message) Outcome {
	if msg.Header.Sender == "" {
		return e.fail(conn, msg.Header.Sender)
	}

	switch msg.Header.Op {
	case wire.RegisterOp:
		return e.handleRegister(conn, fd, msg)
	case wire.ConnectOp:
		return e.handleConnect(conn, fd, msg)
	case wire.PostTxtOp:
		return e.handlePostTxt(conn, msg)
	case wire.PostTxtAllOp:
		return e.handlePostTxtAll(conn, msg)
	case wire.PostFileOp:
		return e.handlePostFile(conn, msg)
	case wire.GetFileOp:
		return e.handleGetFile(conn, msg)
	case wire.GetPrevMsgsOp:
		return e.handleGetPrevMsgs(conn, msg)
	case wire.UsrListOp:
		return e.handleUsrList(conn, msg)
	case wire.UnregisterOp:
		return e.handleUnregister(conn, fd, msg)
	case wire.DisconnectOp:
		return e.handleDisconnect(conn, fd, msg)
	default:
		e.st.Error()
		return e.fail(conn, msg.Header.Sender)
	}
}

// Disconnected is called by the dispatcher whenever fd goes away
// without an explicit DISCONNECT request (read/write error, poll
// hangup) so the registry and connection tracker stay consistent.
func (e *Engine) Disconnected(fd int) {
	e.reg.Disconnect("", fd)
	e.conns.Remove(fd)
	e.locks.Forget(fd)
}

func (e *Engine) fail(conn io.Writer, sender string) Outcome {
	if err := wire.WriteMessage(conn, wire.NewMessage(wire.OpFail, sender, "", nil)); err != nil {
		return Failed
	}
	return Failed
}

func (e *Engine) reply(conn io.Writer, op wire.Op, sender string, payload []byte) Outcome {
	if err := wire.WriteMessage(conn, wire.NewMessage(op, sender, "", payload)); err != nil {
		return Failed
	}
	return OK
}

// deliverDirect attempts a best-effort write of msg straight to fd's
// live connection, serialized through that fd's send lock. It reports
// whether the write succeeded; callers use this to decide whether to
// reconcile the queued/delivered counters.
func (e *Engine) deliverDirect(fd int, msg wire.Message) bool {
	w, ok := e.conns.Get(fd)
	if !ok {
		return false
	}
	m := e.locks.Acquire(fd)
	err := wire.WriteMessage(w, msg)
	e.locks.Release(m)
	return err == nil
}
