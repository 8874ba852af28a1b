package chat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func mustEncode(t *testing.T, m *Message) []byte {
	t.Helper()
	frame, err := m.EncodeBytes()
	if err != nil {
		t.Fatalf("EncodeBytes() error = %v", err)
	}
	return frame
}

func TestReadMessage(t *testing.T) {
	t.Run("SingleFrame", func(t *testing.T) {
		in := &Message{Type: Request(OpRegular), Name: "alice", Payload: []byte("hello")}
		r := bytes.NewReader(mustEncode(t, in))

		got, err := ReadMessage(r)
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		if got.Type != in.Type || got.Name != in.Name || !bytes.Equal(got.Payload, in.Payload) {
			t.Errorf("ReadMessage() = %+v, want %+v", got, in)
		}
	})

	t.Run("BackToBackFrames", func(t *testing.T) {
		var stream bytes.Buffer
		first := &Message{Type: Request(OpConnect), Name: "bob"}
		second := &Message{Type: Request(OpRegular), Name: "bob", Payload: []byte("hi")}
		stream.Write(mustEncode(t, first))
		stream.Write(mustEncode(t, second))

		got1, err := ReadMessage(&stream)
		if err != nil {
			t.Fatalf("first ReadMessage() error = %v", err)
		}
		got2, err := ReadMessage(&stream)
		if err != nil {
			t.Fatalf("second ReadMessage() error = %v", err)
		}
		if got1.Type != first.Type || got2.Type != second.Type {
			t.Errorf("types = %v, %v; want %v, %v", got1.Type, got2.Type, first.Type, second.Type)
		}
		if string(got2.Payload) != "hi" {
			t.Errorf("second payload = %q, want %q", got2.Payload, "hi")
		}
	})

	t.Run("CleanEOF", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader(nil))
		if !errors.Is(err, io.EOF) {
			t.Errorf("ReadMessage() error = %v, want io.EOF", err)
		}
	})

	t.Run("TruncatedPrefixIsCleanClose", func(t *testing.T) {
		frame := mustEncode(t, &Message{Type: Request(OpRegular), Name: "a", Payload: []byte("x")})
		_, err := ReadMessage(bytes.NewReader(frame[:PrefixSize-10]))
		if !errors.Is(err, io.EOF) {
			t.Errorf("ReadMessage() error = %v, want io.EOF", err)
		}
	})

	t.Run("TruncatedPayloadIsIOError", func(t *testing.T) {
		frame := mustEncode(t, &Message{Type: Request(OpRegular), Name: "a", Payload: []byte("hello")})
		_, err := ReadMessage(bytes.NewReader(frame[:len(frame)-2]))
		if err == nil || errors.Is(err, io.EOF) {
			t.Errorf("ReadMessage() error = %v, want unexpected-EOF I/O error", err)
		}
	})

	t.Run("OversizedPayloadLength", func(t *testing.T) {
		prefix := make([]byte, PrefixSize)
		binary.BigEndian.PutUint32(prefix[typeOffset:], uint32(Request(OpRegular)))
		binary.BigEndian.PutUint32(prefix[lengthOffset:], MaxPayloadSize)

		_, err := ReadMessage(bytes.NewReader(prefix))
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Errorf("ReadMessage() error = %v, want ErrPayloadTooLarge", err)
		}
	})
}

func TestWriteMessage(t *testing.T) {
	t.Run("WritesExactFrame", func(t *testing.T) {
		m := &Message{Type: Signal(OpConnect), Name: "carol"}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
		if buf.Len() != PrefixSize {
			t.Errorf("frame length = %d, want %d", buf.Len(), PrefixSize)
		}
		if !bytes.Equal(buf.Bytes(), mustEncode(t, m)) {
			t.Error("WriteMessage() frame differs from Encode()")
		}
	})

	t.Run("RejectsInvalidMessage", func(t *testing.T) {
		m := &Message{Type: Request(OpRegular), Name: "a", Payload: make([]byte, MaxPayloadSize)}
		if err := WriteMessage(io.Discard, m); !errors.Is(err, ErrPayloadTooLarge) {
			t.Errorf("WriteMessage() error = %v, want ErrPayloadTooLarge", err)
		}
	})
}

func TestFramingOverPipe(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sent := &Message{Type: Request(OpPrivate), Name: "alice", Payload: []byte("bob hi there")}

	errCh := make(chan error, 1)
	go func() {
		errCh <- WriteMessage(client, sent)
	}()

	server.SetReadDeadline(time.Now().Add(5 * time.Second))
	got, err := ReadMessage(server)
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	if got.Type != sent.Type || got.Name != sent.Name || !bytes.Equal(got.Payload, sent.Payload) {
		t.Errorf("round trip = %+v, want %+v", got, sent)
	}
}
