package widget

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/internal/service/ai"
)

const waitTimeout = 2 * time.Second

// scriptedModel streams fragments, then err if set. When release is non-nil
// nothing is sent until it is closed.
type scriptedModel struct {
	fragments []string
	err       error
	openErr   error
	release   chan struct{}
}

func (m *scriptedModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(strings.Join(m.fragments, ""), nil), nil
}

func (m *scriptedModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if m.openErr != nil {
		return nil, m.openErr
	}

	reader, writer := schema.Pipe[*schema.Message](len(m.fragments) + 1)
	go func() {
		defer writer.Close()
		if m.release != nil {
			<-m.release
		}
		for _, fragment := range m.fragments {
			writer.Send(schema.AssistantMessage(fragment, nil), nil)
		}
		if m.err != nil {
			writer.Send(nil, m.err)
		}
	}()
	return reader, nil
}

func clientFor(m model.BaseChatModel) *ai.Client {
	return ai.NewClientWithFactory(func(context.Context, string) (model.BaseChatModel, error) {
		return m, nil
	}, "test-model", 20, nil)
}

type viewRecorder struct {
	views chan View
}

func newViewRecorder() *viewRecorder {
	return &viewRecorder{views: make(chan View, 256)}
}

func (r *viewRecorder) Render(v View) error {
	r.views <- v
	return nil
}

func (r *viewRecorder) next(t *testing.T) View {
	t.Helper()
	select {
	case v := <-r.views:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a render")
		return View{}
	}
}

func (r *viewRecorder) waitFor(t *testing.T, desc string, pred func(View) bool) View {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case v := <-r.views:
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", desc)
			return View{}
		}
	}
}

type fakeSynthesizer struct {
	block bool

	mu      sync.Mutex
	cancels int
	spoken  chan string
	ctxs    []context.Context
}

func newFakeSynthesizer() *fakeSynthesizer {
	return &fakeSynthesizer{spoken: make(chan string, 16)}
}

func (f *fakeSynthesizer) Supported() bool { return true }

func (f *fakeSynthesizer) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()

	f.spoken <- text
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeSynthesizer) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeSynthesizer) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-f.spoken:
		if got != want {
			t.Fatalf("spoke %q want %q", got, want)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("expected to speak %q", want)
	}
}

func (f *fakeSynthesizer) expectNone(t *testing.T) {
	t.Helper()
	select {
	case got := <-f.spoken:
		t.Fatalf("unexpected speech %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

type fakeRecognizer struct {
	startErr error
	started  chan speech.RecognitionListener
	stopped  chan struct{}
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{
		started: make(chan speech.RecognitionListener, 4),
		stopped: make(chan struct{}, 4),
	}
}

func (f *fakeRecognizer) Supported() bool { return true }

func (f *fakeRecognizer) Start(_ context.Context, l speech.RecognitionListener) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started <- l
	return nil
}

func (f *fakeRecognizer) Stop() {
	f.stopped <- struct{}{}
}
