package engine

import (
	"encoding/binary"
	"io"

	"chatty/internal/registry"
	"chatty/internal/storage"
	"chatty/internal/wire"
)

func (e *Engine) handleRegister(conn io.ReadWriter, fd int, msg wire.Message) Outcome {
	nick := msg.Header.Sender
	switch e.reg.Register(nick, fd) {
	case registry.Ok:
		e.st.UserRegistered()
		e.st.OnlineDelta(1)
		e.conns.Put(fd, conn)
		return e.reply(conn, wire.OpOK, nick, e.reg.OnlineList())
	case registry.AlreadyExists:
		e.st.Error()
		return e.reply(conn, wire.OpNickAlready, nick, nil)
	default:
		e.st.Error()
		return e.fail(conn, nick)
	}
}

func (e *Engine) handleConnect(conn io.ReadWriter, fd int, msg wire.Message) Outcome {
	nick := msg.Header.Sender
	switch e.reg.Connect(nick, fd) {
	case registry.Ok:
		e.st.OnlineDelta(1)
		e.conns.Put(fd, conn)
		return e.reply(conn, wire.OpOK, nick, e.reg.OnlineList())
	case registry.Unknown:
		e.st.Error()
		return e.reply(conn, wire.OpNickUnknown, nick, nil)
	case registry.AlreadyOnline:
		e.st.Error()
		return e.reply(conn, wire.OpNickAlready, nick, nil)
	default:
		e.st.Error()
		return e.fail(conn, nick)
	}
}

func (e *Engine) handlePostTxt(conn io.ReadWriter, msg wire.Message) Outcome {
	sender := msg.Header.Sender
	if len(msg.Payload) > e.maxMsgSize {
		e.st.Error()
		return e.reply(conn, wire.OpMsgTooLong, sender, nil)
	}

	deliverable := wire.NewMessage(wire.TxtMessage, sender, msg.Receiver, msg.Payload)
	switch e.reg.PostHistory(msg.Receiver, deliverable) {
	case registry.Unknown:
		e.st.Error()
		return e.reply(conn, wire.OpNickUnknown, sender, nil)
	case registry.Ok:
		e.st.TextQueued()
		outcome := e.reply(conn, wire.OpOK, sender, nil)

		if fd := e.reg.LookupFD(msg.Receiver); fd > registry.FDOffline {
			if e.deliverDirect(fd, deliverable) {
				e.st.TextDelivered()
				e.st.TextQueuedDecrement()
			}
		}
		return outcome
	default:
		e.st.Error()
		return e.fail(conn, sender)
	}
}

func (e *Engine) handlePostTxtAll(conn io.ReadWriter, msg wire.Message) Outcome {
	sender := msg.Header.Sender
	if len(msg.Payload) > e.maxMsgSize {
		e.st.Error()
		return e.reply(conn, wire.OpMsgTooLong, sender, nil)
	}

	deliverable := wire.NewMessage(wire.TxtMessage, sender, "", msg.Payload)
	n := e.reg.PostHistoryAll(sender, deliverable)
	for i := 0; i < n; i++ {
		e.st.TextQueued()
	}

	outcome := e.reply(conn, wire.OpOK, sender, nil)

	// Broadcast delivery counts delivered messages without
	// reconciling the queued side back down: every online peer's
	// direct send bumps TextDelivered on top of the n TextQueued
	// increments already recorded above.
	for _, fd := range e.reg.OnlineFDs(sender) {
		if e.deliverDirect(fd, deliverable) {
			e.st.TextDelivered()
		}
	}
	return outcome
}

func (e *Engine) handlePostFile(conn io.ReadWriter, msg wire.Message) Outcome {
	sender := msg.Header.Sender
	proposedName := string(msg.Payload)

	_, fileBytes, err := wire.ReadData(conn)
	if err != nil {
		return Failed
	}

	if len(fileBytes)/1024 > e.maxFileSizeKB {
		e.st.Error()
		return e.reply(conn, wire.OpMsgTooLong, sender, nil)
	}

	if _, err := e.store.Write(proposedName, fileBytes); err != nil {
		e.logger.Error().Err(err).Str("sender", sender).Msg("postfile: store write failed")
		return Failed
	}

	deliverable := wire.NewMessage(wire.FileMessage, sender, msg.Receiver, []byte(storage.Basename(proposedName)))
	switch e.reg.PostHistory(msg.Receiver, deliverable) {
	case registry.Unknown:
		e.st.Error()
		return e.reply(conn, wire.OpNickUnknown, sender, nil)
	case registry.Ok:
		e.st.FilesQueued()
		outcome := e.reply(conn, wire.OpOK, sender, nil)

		if fd := e.reg.LookupFD(msg.Receiver); fd > registry.FDOffline {
			if e.deliverDirect(fd, deliverable) {
				e.st.FilesDelivered()
				e.st.FilesQueuedDecrement()
			}
		}
		return outcome
	default:
		e.st.Error()
		return e.fail(conn, sender)
	}
}

func (e *Engine) handleGetFile(conn io.ReadWriter, msg wire.Message) Outcome {
	sender := msg.Header.Sender
	filename := string(msg.Payload)

	data, err := e.store.Read(filename)
	if err != nil {
		e.st.Error()
		return e.reply(conn, wire.OpNoSuchFile, sender, nil)
	}

	if err := wire.WriteMessage(conn, wire.NewMessage(wire.OpOK, sender, "", data)); err != nil {
		return Failed
	}
	e.st.FilesDelivered()
	e.st.FilesQueuedDecrement()
	return OK
}

func (e *Engine) handleGetPrevMsgs(conn io.ReadWriter, msg wire.Message) Outcome {
	sender := msg.Header.Sender
	history := e.reg.History(sender)
	if history == nil {
		e.st.Error()
		return e.fail(conn, sender)
	}

	countBuf := make([]byte, 8)
	binary.NativeEndian.PutUint64(countBuf, uint64(len(history)))
	if err := wire.WriteMessage(conn, wire.NewMessage(wire.OpOK, sender, "", countBuf)); err != nil {
		return Failed
	}
	for _, m := range history {
		if err := wire.WriteMessage(conn, m); err != nil {
			return Failed
		}
	}
	return OK
}

func (e *Engine) handleUsrList(conn io.ReadWriter, msg wire.Message) Outcome {
	return e.reply(conn, wire.OpOK, msg.Header.Sender, e.reg.OnlineList())
}

func (e *Engine) handleUnregister(conn io.ReadWriter, fd int, msg wire.Message) Outcome {
	sender := msg.Header.Sender
	switch e.reg.Unregister(sender, fd) {
	case registry.Ok:
		e.st.UserUnregistered()
		e.st.OnlineDelta(-1)
		e.locks.Forget(fd)
		return e.reply(conn, wire.OpOK, sender, nil)
	default:
		e.st.Error()
		return e.reply(conn, wire.OpNickUnknown, sender, nil)
	}
}

func (e *Engine) handleDisconnect(conn io.ReadWriter, fd int, msg wire.Message) Outcome {
	sender := msg.Header.Sender
	switch e.reg.Disconnect(sender, fd) {
	case registry.Ok:
		e.st.OnlineDelta(-1)
		e.locks.Forget(fd)
		return e.reply(conn, wire.OpOK, sender, nil)
	default:
		e.st.Error()
		return e.reply(conn, wire.OpNickUnknown, sender, nil)
	}
}
