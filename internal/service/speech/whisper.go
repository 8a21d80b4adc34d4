package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/kieran/voicechat/internal/model/speech"
)

// WhisperTranscriber 调用 OpenAI 转写接口识别音频文件
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
	timeout  int
}

// NewWhisperTranscriber 使用配置中的 OpenAI key 创建客户端
func NewWhisperTranscriber(cfg *speech.SpeechConfig) (*WhisperTranscriber, error) {
	key, err := cfg.WhisperKey()
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		timeout:  cfg.Timeout,
	}, nil
}

func (t *WhisperTranscriber) Name() string              { return "whisper" }
func (t *WhisperTranscriber) Model() string             { return t.model }
func (t *WhisperTranscriber) InputFormat() speech.Format { return speech.FormatMP3 }

// Transcribe 上传文件并请求纯文本结果
func (t *WhisperTranscriber) Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	language := req.Language
	if language == "" {
		language = t.language
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filepath.Base(req.AudioPath),
		Reader:   f,
		Format:   openai.AudioResponseFormatText,
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	return &speech.TranscriptionResponse{
		RequestID: req.RequestID,
		Text:      strings.TrimSpace(resp.Text),
		Duration:  int64(resp.Duration * 1000),
		Provider:  t.Name(),
		CreatedAt: time.Now(),
	}, nil
}
