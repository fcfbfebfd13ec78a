package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	audio []byte
}

func (f *fakeTranscriber) TranscribeAudio(_ context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append([]byte(nil), req.AudioData...)
	if f.err != nil {
		return nil, f.err
	}
	return &speechmodel.ASRResponse{SessionID: req.SessionID, Text: f.text}, nil
}

type listenerEvent struct {
	kind       string
	transcript string
	code       speechmodel.ErrorCode
}

type recordingListener struct {
	events chan listenerEvent
}

func newRecordingListener() *recordingListener {
	return &recordingListener{events: make(chan listenerEvent, 8)}
}

func (l *recordingListener) OnResult(transcript string, isFinal bool) {
	l.events <- listenerEvent{kind: "result", transcript: transcript}
}

func (l *recordingListener) OnError(code speechmodel.ErrorCode) {
	l.events <- listenerEvent{kind: "error", code: code}
}

func (l *recordingListener) OnEnd() {
	l.events <- listenerEvent{kind: "end"}
}

func (l *recordingListener) next(t *testing.T) listenerEvent {
	t.Helper()
	select {
	case ev := <-l.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for listener event")
		return listenerEvent{}
	}
}

func TestRecorderStopTranscribes(t *testing.T) {
	fake := &fakeTranscriber{text: "  what is the capital of France "}
	rec := NewRecorder(fake, "en-US", 0, nil)
	listener := newRecordingListener()

	if err := rec.Start(context.Background(), listener); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	rec.Feed([]byte{1, 2, 3, 4})
	rec.Feed([]byte{5, 6})
	rec.Stop()

	if ev := listener.next(t); ev.kind != "result" || ev.transcript != "what is the capital of France" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev := listener.next(t); ev.kind != "end" {
		t.Fatalf("expected end, got %+v", ev)
	}
	if len(fake.audio) != 6 {
		t.Fatalf("expected 6 buffered bytes, got %d", len(fake.audio))
	}
	if rec.Recording() {
		t.Fatal("recorder should be idle after stop")
	}
}

func TestRecorderRejectsDoubleStart(t *testing.T) {
	rec := NewRecorder(&fakeTranscriber{}, "en-US", 0, nil)
	if err := rec.Start(context.Background(), newRecordingListener()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if err := rec.Start(context.Background(), newRecordingListener()); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
}

func TestRecorderErrorsStillEnd(t *testing.T) {
	cases := []struct {
		name  string
		fake  *fakeTranscriber
		audio []byte
		want  speechmodel.ErrorCode
	}{
		{name: "no audio", fake: &fakeTranscriber{text: "hi"}, want: speechmodel.ErrNoSpeech},
		{name: "empty transcript", fake: &fakeTranscriber{text: "  "}, audio: []byte{1, 2}, want: speechmodel.ErrNoSpeech},
		{name: "credentials", fake: &fakeTranscriber{err: ErrMissingCredentials}, audio: []byte{1, 2}, want: speechmodel.ErrServiceNotAllowed},
		{name: "network", fake: &fakeTranscriber{err: errors.New("dial tcp: refused")}, audio: []byte{1, 2}, want: speechmodel.ErrNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewRecorder(tc.fake, "en-US", 0, nil)
			listener := newRecordingListener()
			if err := rec.Start(context.Background(), listener); err != nil {
				t.Fatalf("Start err: %v", err)
			}
			if tc.audio != nil {
				rec.Feed(tc.audio)
			}
			rec.Stop()

			if ev := listener.next(t); ev.kind != "error" || ev.code != tc.want {
				t.Fatalf("expected error %s, got %+v", tc.want, ev)
			}
			if ev := listener.next(t); ev.kind != "end" {
				t.Fatalf("expected end, got %+v", ev)
			}
		})
	}
}

func TestRecorderEndsOnSilence(t *testing.T) {
	fake := &fakeTranscriber{text: "hello"}
	rec := NewRecorder(fake, "en-US", 200*time.Millisecond, nil)
	listener := newRecordingListener()
	if err := rec.Start(context.Background(), listener); err != nil {
		t.Fatalf("Start err: %v", err)
	}

	rec.Feed(pcm(200, 4000))
	rec.Feed(pcm(100, 0))
	rec.Feed(pcm(100, 0))

	if ev := listener.next(t); ev.kind != "result" || ev.transcript != "hello" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev := listener.next(t); ev.kind != "end" {
		t.Fatalf("expected end, got %+v", ev)
	}

	// 结束后继续推送的音频被丢弃
	rec.Feed(pcm(100, 4000))
	rec.Stop()
	select {
	case ev := <-listener.events:
		t.Fatalf("unexpected event after end: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecorderEndsWhenBufferFull(t *testing.T) {
	fake := &fakeTranscriber{text: "long"}
	rec := NewRecorder(fake, "en-US", 0, nil)
	rec.maxAudio = 8
	listener := newRecordingListener()
	if err := rec.Start(context.Background(), listener); err != nil {
		t.Fatalf("Start err: %v", err)
	}

	rec.Feed([]byte{1, 2, 3, 4, 5, 6})
	if !rec.Recording() {
		t.Fatal("recorder should still be recording below the cap")
	}
	rec.Feed([]byte{7, 8, 9, 10})

	if ev := listener.next(t); ev.kind != "result" || ev.transcript != "long" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev := listener.next(t); ev.kind != "end" {
		t.Fatalf("expected end, got %+v", ev)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.audio) != 8 {
		t.Fatalf("expected audio truncated to 8 bytes, got %d", len(fake.audio))
	}
	if rec.Recording() {
		t.Fatal("recorder should be idle once the buffer is full")
	}
}

func TestRecorderUnsupportedWithoutTranscriber(t *testing.T) {
	if NewRecorder(nil, "en-US", 0, nil).Supported() {
		t.Fatal("recorder without transcriber must be unsupported")
	}
}
