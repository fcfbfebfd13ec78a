package widget

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/internal/service/ai"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

const eventBuffer = 64

// Options configures one page view.
type Options struct {
	Greeting          string
	SystemInstruction string
	Model             string

	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
}

// Controller runs one page view. All state lives on the goroutine executing
// Run; everything else talks to it through Post.
type Controller struct {
	client   *ai.Client
	opts     Options
	renderer Renderer
	input    *InputAdapter
	output   *OutputAdapter
	log      *zap.Logger

	events chan Event
	done   chan struct{}

	state   State
	session *ai.Session
}

// NewController prepares a view. Nothing happens until Run is called.
func NewController(client *ai.Client, opts Options, renderer Renderer, log *zap.Logger) *Controller {
	log = logger.OrNop(log)
	c := &Controller{
		client:   client,
		opts:     opts,
		renderer: renderer,
		log:      log,
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
	}
	c.input = NewInputAdapter(opts.Recognizer, c.Post, log)
	c.output = NewOutputAdapter(opts.Synthesizer, log)
	c.state = NewState(opts.Greeting, c.input.Supported())
	return c
}

// Post queues ev for the event loop. It is safe from any goroutine and
// drops the event once Run has returned.
func (c *Controller) Post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Run creates the conversation session and processes events until ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.shutdown()

	c.render()
	go c.createSession(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.apply(ctx, ev)
		}
	}
}

func (c *Controller) apply(ctx context.Context, ev Event) {
	if ready, ok := ev.(SessionReady); ok {
		c.session = ready.session
	}

	next, effects := Reduce(c.state, ev)
	c.state = next

	// 先执行副作用再渲染，页面看到录音状态时识别器已经就绪
	for _, eff := range effects {
		c.run(ctx, eff)
	}
	c.render()

	if frag, ok := ev.(FragmentReceived); ok && frag.consumed != nil {
		close(frag.consumed)
	}
}

func (c *Controller) run(ctx context.Context, eff Effect) {
	switch eff := eff.(type) {
	case OpenStream:
		go c.stream(ctx, c.session, eff.Text)
	case StartRecognition:
		c.input.Start(ctx)
	case StopRecognition:
		c.input.Stop()
	case Speak:
		c.output.Speak(ctx, eff.Text)
	case SetSpeechEnabled:
		c.output.SetEnabled(eff.Enabled)
	}
}

func (c *Controller) render() {
	if c.renderer == nil {
		return
	}
	if err := c.renderer.Render(RenderView(c.state)); err != nil {
		c.log.Debug("render failed", zap.Error(err))
	}
}

func (c *Controller) createSession(ctx context.Context) {
	session, err := c.client.Create(ctx, c.opts.SystemInstruction, c.opts.Model)
	if err != nil {
		c.log.Warn("session unavailable", zap.Error(err))
		c.Post(SessionFailed{Message: err.Error()})
		return
	}
	c.log.Info("session created", zap.String("session", session.ID), zap.String("model", session.Model))
	c.Post(SessionReady{session: session})
}

// stream feeds one reply into the loop. Each fragment is applied before the
// next one is requested.
func (c *Controller) stream(ctx context.Context, session *ai.Session, text string) {
	st, err := session.SendStreaming(ctx, text)
	if err != nil {
		c.Post(StreamFailed{Message: err.Error()})
		return
	}
	defer st.Close()

	c.Post(StreamOpened{})
	for {
		fragment, err := st.Recv()
		if errors.Is(err, io.EOF) {
			c.Post(StreamEnded{})
			return
		}
		if err != nil {
			c.Post(StreamFailed{Message: err.Error()})
			return
		}

		consumed := make(chan struct{})
		c.Post(FragmentReceived{Text: fragment, consumed: consumed})
		select {
		case <-consumed:
		case <-c.done:
			return
		}
	}
}

func (c *Controller) shutdown() {
	if c.state.IsRecording {
		c.input.Stop()
	}
	c.output.Close()
}
