package ai

import (
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Stream yields the fragments of one reply in delivery order. It is not
// restartable.
type Stream struct {
	reader  *schema.StreamReader[*schema.Message]
	session *Session
	query   string

	chunks []*schema.Message
	err    error
}

// Recv blocks for the next fragment. It returns io.EOF once the reply is
// complete, or a single *StreamError; after either it keeps returning the same
// error.
func (s *Stream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	for {
		chunk, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.finish()
			return "", s.err
		}
		if err != nil {
			s.err = &StreamError{Err: err}
			s.session.log.Warn("stream failed", zap.String("session", s.session.ID), zap.Int("fragments", len(s.chunks)), zap.Error(err))
			return "", s.err
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		s.chunks = append(s.chunks, chunk)
		return chunk.Content, nil
	}
}

// Close releases the underlying reader.
func (s *Stream) Close() {
	s.reader.Close()
}

func (s *Stream) finish() {
	s.err = io.EOF

	reply := s.text()
	if merged, err := schema.ConcatMessages(s.chunks); err == nil && merged != nil {
		reply = merged.Content
	}
	s.session.record(s.query, reply)
}

func (s *Stream) text() string {
	var builder strings.Builder
	for _, chunk := range s.chunks {
		builder.WriteString(chunk.Content)
	}
	return builder.String()
}
