package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/kieran/voicechat/internal/model/speech"
)

// Transcriber 语音识别服务抽象，输入为本地音频文件，输出为纯文本
type Transcriber interface {
	Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error)
	// Name identifies the backend in logs and metrics.
	Name() string
	Model() string
	// InputFormat is the container the backend expects uploads converted to.
	InputFormat() speech.Format
}

// NewTranscriber 根据 provider 创建对应的识别客户端
func NewTranscriber(provider string, cfg *speech.SpeechConfig) (Transcriber, error) {
	switch provider {
	case "", "whisper":
		return NewWhisperTranscriber(cfg)
	case "volcengine":
		return NewVolcengineASRClient(cfg)
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", provider)
	}
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
