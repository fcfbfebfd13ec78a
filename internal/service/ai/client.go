package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// ModelFactory builds the chat model backing a new session.
type ModelFactory func(ctx context.Context, modelName string) (model.BaseChatModel, error)

// Client creates conversation sessions bound to a remote chat model.
type Client struct {
	factory      ModelFactory
	defaultModel string
	historyLimit int
	log          *zap.Logger
}

// NewClient returns a client whose sessions run on the Ark model described by cfg.
func NewClient(cfg config.ChatConfig, log *zap.Logger) *Client {
	factory := func(ctx context.Context, modelName string) (model.BaseChatModel, error) {
		chatModel, err := cfg.NewChatModel(ctx, modelName)
		if err != nil {
			return nil, err
		}
		return chatModel, nil
	}
	return NewClientWithFactory(factory, cfg.Model, cfg.HistoryLimit, log)
}

// NewClientWithFactory returns a client using a custom model factory.
func NewClientWithFactory(factory ModelFactory, defaultModel string, historyLimit int, log *zap.Logger) *Client {
	return &Client{
		factory:      factory,
		defaultModel: defaultModel,
		historyLimit: historyLimit,
		log:          logger.OrNop(log).Named("ai"),
	}
}

// Create opens a session with the given system instruction. Any failure is
// returned as an *InitError.
func (c *Client) Create(ctx context.Context, systemInstruction, modelName string) (*Session, error) {
	if strings.TrimSpace(modelName) == "" {
		modelName = c.defaultModel
	}

	chatModel, err := c.factory(ctx, modelName)
	if err != nil {
		return nil, &InitError{Err: err}
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, &InitError{Err: fmt.Errorf("failed to compile chat chain: %w", err)}
	}

	session := &Session{
		ID:                uuid.NewString(),
		Model:             modelName,
		CreatedAt:         time.Now().UTC(),
		systemInstruction: systemInstruction,
		chain:             runnable,
		historyLimit:      c.historyLimit,
		log:               c.log,
	}

	c.log.Info("session created", zap.String("session", session.ID), zap.String("model", modelName))
	return session, nil
}
