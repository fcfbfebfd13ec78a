package speech

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload, err := gzipBytes([]byte(`{"hello":"world"}`))
	if err != nil {
		t.Fatalf("gzipBytes err: %v", err)
	}

	cases := []struct {
		name  string
		frame *frame
	}{
		{name: "request", frame: newRequestFrame(payload, true)},
		{name: "audio", frame: newAudioFrame(payload, 3, false)},
		{name: "last audio", frame: newAudioFrame(payload, 4, true)},
		{name: "event", frame: &frame{
			Type:          frameFullServerResponse,
			Flags:         flagWithEvent,
			Serialization: serializationJSON,
			Compression:   compressionGzip,
			Event:         eventSessionFinished,
			SessionID:     "session-1",
			Payload:       payload,
		}},
		{name: "connection event", frame: &frame{
			Type:      frameFullServerResponse,
			Flags:     flagWithEvent,
			Event:     eventConnectionStarted,
			ConnectID: "conn-1",
		}},
		{name: "error", frame: &frame{
			Type:      frameError,
			ErrorCode: 45000001,
			Payload:   []byte("bad request"),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := decodeFrame(tc.frame.encode())
			if err != nil {
				t.Fatalf("decodeFrame err: %v", err)
			}
			if decoded.Type != tc.frame.Type || decoded.Flags != tc.frame.Flags {
				t.Fatalf("header mismatch: got %v/%v want %v/%v", decoded.Type, decoded.Flags, tc.frame.Type, tc.frame.Flags)
			}
			if decoded.Sequence != tc.frame.Sequence {
				t.Fatalf("sequence mismatch: got %d want %d", decoded.Sequence, tc.frame.Sequence)
			}
			if decoded.Event != tc.frame.Event || decoded.SessionID != tc.frame.SessionID || decoded.ConnectID != tc.frame.ConnectID {
				t.Fatalf("event mismatch: got %+v", decoded)
			}
			if decoded.ErrorCode != tc.frame.ErrorCode {
				t.Fatalf("error code mismatch: got %d want %d", decoded.ErrorCode, tc.frame.ErrorCode)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Fatalf("payload mismatch")
			}
		})
	}
}

func TestAudioFrameLastIsNegative(t *testing.T) {
	f := newAudioFrame([]byte{1}, 7, true)
	if f.Sequence != -7 {
		t.Fatalf("expected -7, got %d", f.Sequence)
	}
	if !f.isLast() || !f.hasSequence() {
		t.Fatalf("last audio frame must carry a negative sequence")
	}

	f = newAudioFrame([]byte{1}, 7, false)
	if f.isLast() {
		t.Fatalf("intermediate frame reported as last")
	}
}

func TestFramePayloadGunzip(t *testing.T) {
	raw := []byte("some transcript bytes")
	compressed, err := gzipBytes(raw)
	if err != nil {
		t.Fatalf("gzipBytes err: %v", err)
	}

	got, err := newRequestFrame(compressed, true).payload()
	if err != nil {
		t.Fatalf("payload err: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("got %q want %q", got, raw)
	}

	plain, err := newRequestFrame(raw, false).payload()
	if err != nil {
		t.Fatalf("payload err: %v", err)
	}
	if !bytes.Equal(plain, raw) {
		t.Fatalf("uncompressed payload changed")
	}
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	if _, err := decodeFrame([]byte{0x11}); err == nil {
		t.Fatal("expected error for short header")
	}
	if _, err := decodeFrame([]byte{0x21, 0x10, 0x10, 0x00, 0, 0, 0, 0}); err == nil {
		t.Fatal("expected error for unknown protocol version")
	}
}

func TestDecodeFrameRejectsOversizedPayload(t *testing.T) {
	// 声明约 4 GiB 的 payload，实际只有 3 字节
	data := []byte{0x11, 0x90, 0x10, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 'a', 'b', 'c'}

	_, err := decodeFrame(data)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}
