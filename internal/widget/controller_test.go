package widget

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/internal/model/chat"
	"github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/internal/service/ai"
)

func runController(t *testing.T, client *ai.Client, opts Options) (*Controller, *viewRecorder) {
	t.Helper()
	if opts.Greeting == "" {
		opts.Greeting = config.DefaultGreeting
	}

	views := newViewRecorder()
	c := NewController(client, opts, views, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c, views
}

func waitReady(t *testing.T, views *viewRecorder) {
	t.Helper()
	views.waitFor(t, "session ready", func(v View) bool {
		return v.Placeholder == "Type or say something..."
	})
}

func TestControllerStreamsReplyAndSpeaks(t *testing.T) {
	m := &scriptedModel{fragments: []string{"Hello", " there"}, release: make(chan struct{})}
	synth := newFakeSynthesizer()
	c, views := runController(t, clientFor(m), Options{Synthesizer: synth})
	waitReady(t, views)

	c.Post(InputChanged{Text: "Hi"})
	c.Post(Submitted{})

	v := views.waitFor(t, "empty model message", func(v View) bool { return len(v.Messages) == 3 })
	want := []chat.Message{
		chat.ModelMessage(config.DefaultGreeting),
		chat.UserMessage("Hi"),
		chat.ModelMessage(""),
	}
	for i := range want {
		if v.Messages[i] != want[i] {
			t.Fatalf("message %d: got %+v want %+v", i, v.Messages[i], want[i])
		}
	}
	if !v.IsLoading || v.Input != "" || !v.InputDisabled {
		t.Fatalf("unexpected view while streaming %+v", v)
	}

	close(m.release)
	v = views.waitFor(t, "settled", func(v View) bool { return !v.IsLoading })
	if last := v.Messages[len(v.Messages)-1]; last != chat.ModelMessage("Hello there") {
		t.Fatalf("unexpected reply %+v", last)
	}
	synth.expect(t, "Hello there")
	synth.expectNone(t)
}

func TestControllerMissingCredential(t *testing.T) {
	c, views := runController(t, ai.NewClient(config.ChatConfig{}, nil), Options{})

	v := views.waitFor(t, "init error", func(v View) bool { return v.ErrorBanner != "" })
	if v.ErrorBanner != "API_KEY environment variable not set." {
		t.Fatalf("unexpected banner %q", v.ErrorBanner)
	}
	if !v.InputDisabled || !v.MicDisabled || v.Placeholder != "Initializing chatbot..." {
		t.Fatalf("input must stay disabled: %+v", v)
	}
	if len(v.Messages) != 1 {
		t.Fatalf("no message may be appended, got %+v", v.Messages)
	}

	c.Post(InputChanged{Text: "hello"})
	c.Post(Submitted{})
	views.next(t)
	if v := views.next(t); len(v.Messages) != 1 || v.IsLoading {
		t.Fatalf("submit without session must be ignored: %+v", v)
	}
}

func TestControllerStreamFailure(t *testing.T) {
	m := &scriptedModel{fragments: []string{"par", "tial"}, err: errors.New("boom")}
	synth := newFakeSynthesizer()
	c, views := runController(t, clientFor(m), Options{Synthesizer: synth})
	waitReady(t, views)

	c.Post(InputChanged{Text: "Hi"})
	c.Post(Submitted{})

	v := views.waitFor(t, "error message", func(v View) bool {
		return len(v.Messages) > 0 && v.Messages[len(v.Messages)-1].Role == chat.RoleError
	})
	if len(v.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %+v", v.Messages)
	}
	if v.Messages[2] != chat.ModelMessage("partial") {
		t.Fatalf("partial reply lost: %+v", v.Messages[2])
	}
	if got := v.Messages[3].Content; !strings.HasPrefix(got, "Error: ") || !strings.Contains(got, "boom") {
		t.Fatalf("unexpected error message %q", got)
	}
	if v.IsLoading || v.ErrorBanner != "" {
		t.Fatalf("unexpected view %+v", v)
	}

	select {
	case spoken := <-synth.spoken:
		if !strings.HasPrefix(spoken, "I'm sorry, an error occurred: ") {
			t.Fatalf("unexpected apology %q", spoken)
		}
	case <-time.After(waitTimeout):
		t.Fatal("expected apology to be spoken")
	}
}

func TestControllerSpeechToggle(t *testing.T) {
	m := &scriptedModel{fragments: []string{"a", "b"}}
	synth := newFakeSynthesizer()
	c, views := runController(t, clientFor(m), Options{Synthesizer: synth})
	waitReady(t, views)

	c.Post(SpeechToggled{})
	c.Post(InputChanged{Text: "one"})
	c.Post(Submitted{})
	views.waitFor(t, "first reply", func(v View) bool { return len(v.Messages) == 3 && !v.IsLoading })
	synth.expectNone(t)

	c.Post(SpeechToggled{})
	c.Post(InputChanged{Text: "two"})
	c.Post(Submitted{})
	v := views.waitFor(t, "second reply", func(v View) bool { return len(v.Messages) == 5 && !v.IsLoading })
	if !v.IsSpeechEnabled {
		t.Fatal("speech should be enabled again")
	}
	synth.expect(t, "ab")
	synth.expectNone(t)
}

func TestControllerRecognitionAppendsTranscript(t *testing.T) {
	rec := newFakeRecognizer()
	c, views := runController(t, clientFor(&scriptedModel{}), Options{Recognizer: rec})
	waitReady(t, views)

	c.Post(InputChanged{Text: "Hey"})
	c.Post(RecordingToggled{})

	var l speech.RecognitionListener
	select {
	case l = <-rec.started:
	case <-time.After(waitTimeout):
		t.Fatal("recognizer was not started")
	}
	views.waitFor(t, "listening", func(v View) bool { return v.IsRecording && v.Placeholder == "Listening..." })

	c.Post(RecordingToggled{})
	select {
	case <-rec.stopped:
	case <-time.After(waitTimeout):
		t.Fatal("recognizer was not stopped")
	}

	l.OnResult("what is the capital of France", true)
	l.OnEnd()

	v := views.waitFor(t, "recording ended", func(v View) bool { return !v.IsRecording })
	if v.Input != "Hey what is the capital of France" {
		t.Fatalf("unexpected compose %q", v.Input)
	}
}

func TestControllerRecognitionStartFailure(t *testing.T) {
	rec := newFakeRecognizer()
	rec.startErr = errors.New("microphone busy")
	c, views := runController(t, clientFor(&scriptedModel{}), Options{Recognizer: rec})
	waitReady(t, views)

	c.Post(RecordingToggled{})
	v := views.waitFor(t, "start failure", func(v View) bool { return v.ErrorBanner != "" && !v.IsRecording })
	if v.ErrorBanner != "Speech recognition error: audio-capture" {
		t.Fatalf("unexpected banner %q", v.ErrorBanner)
	}
}

func TestControllerWithoutRecognizer(t *testing.T) {
	c, views := runController(t, clientFor(&scriptedModel{}), Options{})
	waitReady(t, views)

	c.Post(RecordingToggled{})
	if v := views.next(t); v.IsRecording || v.MicSupported {
		t.Fatalf("mic must be inert without recognizer: %+v", v)
	}
}

func TestOutputAdapterNewestWins(t *testing.T) {
	synth := newFakeSynthesizer()
	synth.block = true
	out := NewOutputAdapter(synth, nil)

	out.Speak(context.Background(), "first")
	synth.expect(t, "first")
	out.Speak(context.Background(), "second")
	synth.expect(t, "second")

	synth.mu.Lock()
	first := synth.ctxs[0]
	cancels := synth.cancels
	synth.mu.Unlock()

	if first.Err() == nil {
		t.Fatal("first utterance must be cancelled")
	}
	if cancels != 2 {
		t.Fatalf("expected cancel before each utterance, got %d", cancels)
	}
	out.Close()
}

func TestOutputAdapterGating(t *testing.T) {
	synth := newFakeSynthesizer()
	out := NewOutputAdapter(synth, nil)

	out.SetEnabled(false)
	out.Speak(context.Background(), "quiet")
	out.Speak(context.Background(), "   ")
	synth.expectNone(t)

	out.SetEnabled(true)
	out.Speak(context.Background(), "loud")
	synth.expect(t, "loud")

	NewOutputAdapter(nil, nil).Speak(context.Background(), "nobody listens")
}
