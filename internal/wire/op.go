// Package wire implements the chatty frame codec: the fixed-width
// header/data layout shared with the client, and the blocking,
// loop-to-completion read/write primitives used to move a frame over
// a stream socket.
package wire

// Op is the tagged operation code carried in every frame header. It
// names both requests (REGISTER, CONNECT, ...) and replies
// (OP_OK, OP_FAIL, ...).
type Op uint32

const (
	RegisterOp Op = iota
	ConnectOp
	PostTxtOp
	PostTxtAllOp
	PostFileOp
	GetFileOp
	GetPrevMsgsOp
	UsrListOp
	UnregisterOp
	DisconnectOp

	TxtMessage
	FileMessage

	OpOK
	OpFail
	OpNickAlready
	OpNickUnknown
	OpMsgTooLong
	OpNoSuchFile
)

// String renders an Op by name for log lines; every value outside the
// defined set prints as "OP_UNKNOWN".
func (o Op) String() string {
	switch o {
	case RegisterOp:
		return "REGISTER_OP"
	case ConnectOp:
		return "CONNECT_OP"
	case PostTxtOp:
		return "POSTTXT_OP"
	case PostTxtAllOp:
		return "POSTTXTALL_OP"
	case PostFileOp:
		return "POSTFILE_OP"
	case GetFileOp:
		return "GETFILE_OP"
	case GetPrevMsgsOp:
		return "GETPREVMSGS_OP"
	case UsrListOp:
		return "USRLIST_OP"
	case UnregisterOp:
		return "UNREGISTER_OP"
	case DisconnectOp:
		return "DISCONNECT_OP"
	case TxtMessage:
		return "TXT_MESSAGE"
	case FileMessage:
		return "FILE_MESSAGE"
	case OpOK:
		return "OP_OK"
	case OpFail:
		return "OP_FAIL"
	case OpNickAlready:
		return "OP_NICK_ALREADY"
	case OpNickUnknown:
		return "OP_NICK_UNKNOWN"
	case OpMsgTooLong:
		return "OP_MSG_TOOLONG"
	case OpNoSuchFile:
		return "OP_NO_SUCH_FILE"
	default:
		return "OP_UNKNOWN"
	}
}

// MaxNameLength bounds a nickname (the sender and receiver fields) on
// the wire. A POSTFILE filename travels in the payload and is not
// bounded by it.
const MaxNameLength = 32
