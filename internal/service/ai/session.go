package ai

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Session is one conversation with the model. It keeps the completed turns
// and replays them with every new message.
type Session struct {
	ID        string
	Model     string
	CreatedAt time.Time

	systemInstruction string
	chain             compose.Runnable[map[string]any, *schema.Message]
	historyLimit      int
	log               *zap.Logger

	mu      sync.Mutex
	history []*schema.Message
}

// SendStreaming sends text and returns the reply as a fragment stream. Every
// call opens a new stream; failing to open one yields a *StreamError.
func (s *Session) SendStreaming(ctx context.Context, text string) (*Stream, error) {
	input := map[string]any{
		"system":  s.systemInstruction,
		"history": s.recentHistory(),
		"query":   text,
	}

	reader, err := s.chain.Stream(ctx, input)
	if err != nil {
		s.log.Warn("failed to open stream", zap.String("session", s.ID), zap.Error(err))
		return nil, &StreamError{Err: err}
	}

	return &Stream{reader: reader, session: s, query: text}, nil
}

// History returns a copy of the completed turns.
func (s *Session) History() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]*schema.Message, len(s.history))
	copy(copied, s.history)
	return copied
}

func (s *Session) recentHistory() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 按完整的一问一答裁剪，回放的历史总以用户消息开头
	startIdx := 0
	if s.historyLimit > 0 {
		limit := s.historyLimit &^ 1
		if len(s.history) > limit {
			startIdx = len(s.history) - limit
		}
	}

	history := make([]*schema.Message, len(s.history)-startIdx)
	copy(history, s.history[startIdx:])
	return history
}

func (s *Session) record(query, reply string) {
	s.mu.Lock()
	s.history = append(s.history, schema.UserMessage(query), schema.AssistantMessage(reply, nil))
	turns := len(s.history) / 2
	s.mu.Unlock()

	s.log.Debug("turn recorded", zap.String("session", s.ID), zap.Int("turns", turns), zap.Int("length", len(reply)))
}
