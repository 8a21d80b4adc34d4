package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/kieran/voicechat/internal/config"
)

// ErrEmptyReply 模型返回了空内容
var ErrEmptyReply = errors.New("chat model returned an empty reply")

// Completer turns a single user prompt into a single assistant reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// NewCompleter 根据配置创建对应的对话后端
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	switch cfg.Provider {
	case "", config.ProviderOpenAI:
		return NewOpenAICompleter(cfg)
	case config.ProviderArk:
		return NewArkCompleter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}
