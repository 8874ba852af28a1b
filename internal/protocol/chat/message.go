// Package chat implements the parley wire protocol: a length-prefixed
// binary frame carrying a typed, named, sanitized text payload.
//
// Every frame starts with a fixed 40-byte prefix — a 4-byte type word,
// a 32-byte zero-padded sender name, and a 4-byte payload length, all
// integers big-endian — followed by the payload bytes. Only
// PrefixSize+payloadLength bytes travel on the wire.
package chat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire geometry.
const (
	// MaxNameSize is the wire size of the name field. Names occupy at
	// most MaxNameSize-1 bytes so the field always NUL-terminates.
	MaxNameSize = 32

	// MaxPayloadSize bounds the payload length field: a conforming
	// frame carries strictly fewer payload bytes.
	MaxPayloadSize = 1024

	// PrefixSize is the fixed frame prefix: type word, name field,
	// payload length.
	PrefixSize = 4 + MaxNameSize + 4

	// MaxFrameSize bounds a complete frame for buffer sizing.
	MaxFrameSize = PrefixSize + MaxPayloadSize
)

// Field offsets within the prefix.
const (
	typeOffset   = 0
	nameOffset   = 4
	lengthOffset = 4 + MaxNameSize
)

var (
	// ErrNameTooLong reports a name that cannot fit the 32-byte wire
	// field with its terminating NUL.
	ErrNameTooLong = errors.New("chat: name too long")

	// ErrPayloadTooLarge reports a payload length at or above
	// MaxPayloadSize. On decode this poisons the stream: the framer
	// cannot resynchronize past an untrusted length.
	ErrPayloadTooLarge = errors.New("chat: payload too large")

	// ErrShortPrefix reports a prefix buffer smaller than PrefixSize.
	ErrShortPrefix = errors.New("chat: short frame prefix")

	// ErrServerFull reports a connection refused because the roster is
	// at capacity. The refused socket is closed without a greeting.
	ErrServerFull = errors.New("chat: server full")
)

// Message is the only entity exchanged on the wire.
type Message struct {
	// Type tags the verb and direction (see Type).
	Type Type

	// Name identifies the sending party; at most MaxNameSize-1 bytes
	// of printable ASCII.
	Name string

	// Payload is the message body; len(Payload) < MaxPayloadSize.
	Payload []byte
}

// EncodedSize returns the number of bytes m occupies on the wire.
func (m *Message) EncodedSize() int {
	return PrefixSize + len(m.Payload)
}

// Validate checks the field limits enforced at the codec boundary.
func (m *Message) Validate() error {
	if len(m.Name) >= MaxNameSize {
		return fmt.Errorf("name %q: %w", m.Name, ErrNameTooLong)
	}
	if len(m.Payload) >= MaxPayloadSize {
		return fmt.Errorf("payload length %d: %w", len(m.Payload), ErrPayloadTooLarge)
	}
	return nil
}

// Encode serializes m into buf, which must hold at least
// EncodedSize() bytes. It returns the number of bytes written.
func (m *Message) Encode(buf []byte) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	size := m.EncodedSize()
	if len(buf) < size {
		return 0, fmt.Errorf("chat: encode buffer too small: %d < %d", len(buf), size)
	}

	binary.BigEndian.PutUint32(buf[typeOffset:], uint32(m.Type))

	// Zero-pad the whole name field so stale bytes never leak onto
	// the wire, then lay the name down.
	nameField := buf[nameOffset : nameOffset+MaxNameSize]
	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, m.Name)

	binary.BigEndian.PutUint32(buf[lengthOffset:], uint32(len(m.Payload)))
	copy(buf[PrefixSize:size], m.Payload)

	return size, nil
}

// EncodeBytes allocates a fresh buffer and serializes m into it.
func (m *Message) EncodeBytes() ([]byte, error) {
	buf := make([]byte, m.EncodedSize())
	if _, err := m.Encode(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodePrefix parses the fixed frame prefix and returns the type
// word, the sender name, and the payload length. The length is
// validated against MaxPayloadSize; the payload bytes themselves are
// the framer's business.
func DecodePrefix(prefix []byte) (Type, string, uint32, error) {
	if len(prefix) < PrefixSize {
		return 0, "", 0, fmt.Errorf("prefix length %d: %w", len(prefix), ErrShortPrefix)
	}

	t := Type(binary.BigEndian.Uint32(prefix[typeOffset:]))
	name := decodeName(prefix[nameOffset : nameOffset+MaxNameSize])

	length := binary.BigEndian.Uint32(prefix[lengthOffset:])
	if length >= MaxPayloadSize {
		return 0, "", 0, fmt.Errorf("payload length %d: %w", length, ErrPayloadTooLarge)
	}

	return t, name, length, nil
}

// decodeName extracts the name up to its terminating NUL. A field
// with no NUL (which a conforming encoder never produces) yields all
// 32 bytes; the roster clamps adopted names back to the wire limit.
func decodeName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}

// ClampName truncates a name to the longest length the wire field can
// carry. Adopted names (REQ_CON, REQ_NIC) pass through here so every
// later frame that echoes them encodes cleanly.
func ClampName(name string) string {
	if len(name) >= MaxNameSize {
		return name[:MaxNameSize-1]
	}
	return name
}
