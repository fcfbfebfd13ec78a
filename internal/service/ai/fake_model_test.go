package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel streams canned fragments and optionally fails after failAfter of them.
type fakeChatModel struct {
	fragments []string
	failAfter int
	streamErr error
	openErr   error

	mu     sync.Mutex
	inputs [][]*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.capture(input)
	return schema.AssistantMessage(strings.Join(m.fragments, ""), nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.capture(input)
	if m.openErr != nil {
		return nil, m.openErr
	}

	reader, writer := schema.Pipe[*schema.Message](len(m.fragments) + 1)
	go func() {
		defer writer.Close()
		for i, fragment := range m.fragments {
			if m.streamErr != nil && i == m.failAfter {
				writer.Send(nil, m.streamErr)
				return
			}
			writer.Send(schema.AssistantMessage(fragment, nil), nil)
		}
		if m.streamErr != nil && m.failAfter >= len(m.fragments) {
			writer.Send(nil, m.streamErr)
		}
	}()
	return reader, nil
}

func (m *fakeChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func (m *fakeChatModel) capture(input []*schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
}

func (m *fakeChatModel) lastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}

func factoryFor(m model.BaseChatModel) ModelFactory {
	return func(context.Context, string) (model.BaseChatModel, error) {
		return m, nil
	}
}
