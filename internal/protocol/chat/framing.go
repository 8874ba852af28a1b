package chat

import (
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/parley/pkg/bufpool"
)

// ReadMessage reads exactly one frame from r: the 40-byte prefix,
// then the payload the prefix announces. It blocks until the frame is
// complete.
//
// A clean close at the frame boundary — and a prefix truncated by
// EOF — return io.EOF. A payload length at or above MaxPayloadSize
// returns ErrPayloadTooLarge; the stream is unusable afterwards. A
// payload truncated after a valid prefix is an I/O error.
func ReadMessage(r io.Reader) (*Message, error) {
	prefix := bufpool.Get(PrefixSize)
	defer bufpool.Put(prefix)

	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame prefix: %w", err)
	}

	t, name, length, err := DecodePrefix(prefix)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if length > 0 {
		// The payload outlives this call (it rides the message into
		// the dispatcher), so it gets its own allocation rather than
		// a pooled buffer.
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("read frame payload: %w", err)
		}
	}

	return &Message{Type: t, Name: name, Payload: payload}, nil
}

// WriteMessage serializes m and writes the frame as a single Write
// call, so frames from one writer never interleave on the stream.
func WriteMessage(w io.Writer, m *Message) error {
	size := m.EncodedSize()
	buf := bufpool.Get(size)
	defer bufpool.Put(buf)

	if _, err := m.Encode(buf); err != nil {
		return err
	}
	if _, err := w.Write(buf[:size]); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
