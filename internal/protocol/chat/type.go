package chat

import "fmt"

// Type is the 32-bit tag in the first field of every frame. It packs
// three bit-fields: the main kind in the low nibble, the response
// status in the next nibble, and the operation in the high 24 bits.
type Type uint32

// Bit-field masks of a type word.
const (
	KindMask   = 0x0000000F
	StatusMask = 0x000000F0
	OpMask     = 0xFFFFFF00
)

// Kind says who is speaking and in which direction. Clients emit only
// requests; the server answers the requester with a response and
// notifies everyone else with a signal.
type Kind uint32

const (
	KindRequest  Kind = 0x0
	KindResponse Kind = 0x1
	KindSignal   Kind = 0x2
)

// Status qualifies a response; zero on requests and signals.
type Status uint32

const (
	StatusNone    Status = 0x00
	StatusSuccess Status = 0x10
	StatusFailure Status = 0x20
)

// Op is the operation sub-kind, stepped by 0x100.
type Op uint32

const (
	// OpRegular is a plain chat line broadcast to the room.
	OpRegular Op = 0x100
	// OpPrivate is a direct message to a single named participant.
	OpPrivate Op = 0x200
	// OpConnect announces a participant joining the room.
	OpConnect Op = 0x300
	// OpDisconnect announces a participant leaving the room.
	OpDisconnect Op = 0x400
	// OpNickname renames a participant.
	OpNickname Op = 0x500
)

// MakeType composes a type word from its three fields.
func MakeType(k Kind, s Status, op Op) Type {
	return Type(uint32(k) | uint32(s) | uint32(op))
}

// Request returns the tag a client uses to issue op.
func Request(op Op) Type { return MakeType(KindRequest, StatusNone, op) }

// Signal returns the tag the server uses to notify peers of op.
func Signal(op Op) Type { return MakeType(KindSignal, StatusNone, op) }

// Success returns the tag of a positive server reply to op.
func Success(op Op) Type { return MakeType(KindResponse, StatusSuccess, op) }

// Failure returns the tag of a negative server reply to op.
func Failure(op Op) Type { return MakeType(KindResponse, StatusFailure, op) }

// Kind extracts the main kind field.
func (t Type) Kind() Kind { return Kind(uint32(t) & KindMask) }

// Status extracts the response status field.
func (t Type) Status() Status { return Status(uint32(t) & StatusMask) }

// Op extracts the operation field.
func (t Type) Op() Op { return Op(uint32(t) & OpMask) }

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "REQ"
	case KindResponse:
		return "RES"
	case KindSignal:
		return "SIG"
	default:
		return fmt.Sprintf("KIND(%#x)", uint32(k))
	}
}

func (s Status) String() string {
	switch s {
	case StatusNone:
		return ""
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	default:
		return fmt.Sprintf("STATUS(%#x)", uint32(s))
	}
}

func (o Op) String() string {
	switch o {
	case OpRegular:
		return "REG"
	case OpPrivate:
		return "PRV"
	case OpConnect:
		return "CON"
	case OpDisconnect:
		return "DIS"
	case OpNickname:
		return "NIC"
	default:
		return fmt.Sprintf("OP(%#x)", uint32(o))
	}
}

// String renders the tag in protocol notation, e.g. "REQ_REG" or
// "RES_NIC_SUCCESS".
func (t Type) String() string {
	s := t.Kind().String() + "_" + t.Op().String()
	if st := t.Status(); st != StatusNone {
		s += "_" + st.String()
	}
	return s
}
