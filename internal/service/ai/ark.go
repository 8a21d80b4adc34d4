package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/kieran/voicechat/internal/config"
)

// ArkCompleter 通过 eino 链路调用火山方舟模型
type ArkCompleter struct {
	model string
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkCompleter 根据配置创建方舟模型并编译链路
func NewArkCompleter(ctx context.Context, cfg config.AIConfig) (*ArkCompleter, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newArkCompleter(ctx, cfg.Model, chatModel)
}

func newArkCompleter(ctx context.Context, modelName string, chatModel model.ChatModel) (*ArkCompleter, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkCompleter{model: modelName, chain: runnable}, nil
}

func (c *ArkCompleter) Model() string { return c.model }

// Complete 执行一次单轮对话
func (c *ArkCompleter) Complete(ctx context.Context, query string) (string, error) {
	response, err := c.chain.Invoke(ctx, map[string]any{"query": query})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", ErrEmptyReply
	}

	reply := strings.TrimSpace(response.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	log.Printf("[ai] ark reply model=%s length=%d", c.model, len(reply))
	return reply, nil
}
