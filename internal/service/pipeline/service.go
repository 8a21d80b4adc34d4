package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/kieran/voicechat/internal/metrics"
	"github.com/kieran/voicechat/internal/model/chat"
	speechmodel "github.com/kieran/voicechat/internal/model/speech"
	"github.com/kieran/voicechat/internal/service/ai"
	"github.com/kieran/voicechat/internal/service/audio"
	"github.com/kieran/voicechat/internal/service/speech"
)

// Upload 客户端上传的一段录音
type Upload struct {
	RequestID   string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service 串联 保存 → 转码 → 识别 → 对话，每次调用使用独立的临时工作区
type Service struct {
	tempDir     string
	converter   audio.Converter
	transcriber speech.Transcriber
	completer   ai.Completer
	metrics     *metrics.Metrics
}

// NewService 创建流水线服务，m 可以为 nil
func NewService(tempDir string, converter audio.Converter, transcriber speech.Transcriber, completer ai.Completer, m *metrics.Metrics) *Service {
	return &Service{
		tempDir:     tempDir,
		converter:   converter,
		transcriber: transcriber,
		completer:   completer,
		metrics:     m,
	}
}

// Process 依次执行各阶段并返回一轮对话。
// 无论成功与否，返回前都会清理本次请求的临时文件。
func (s *Service) Process(ctx context.Context, up Upload) (exchange chat.Exchange, err error) {
	ws, err := audio.NewWorkspace(s.tempDir)
	if err != nil {
		s.recordOutcome(string(StageUpload))
		return chat.Exchange{}, &StageError{Stage: StageUpload, Err: err}
	}

	requestID := up.RequestID
	if requestID == "" {
		requestID = ws.ID()
	}

	defer func() {
		if cerr := ws.Close(); cerr != nil {
			log.Printf("[pipeline] request=%s cleanup failed: %v", requestID, cerr)
			if s.metrics != nil {
				s.metrics.RecordCleanupFailure()
			}
		}
		if stage, ok := FailedStage(err); ok {
			s.recordOutcome(string(stage))
			return
		}
		s.recordOutcome(metrics.OutcomeSuccess)
	}()

	var src string
	if err = s.runStage(StageUpload, func() error {
		var serr error
		src, serr = s.saveUpload(ws, requestID, up)
		return serr
	}); err != nil {
		return chat.Exchange{}, err
	}

	target := s.transcriber.InputFormat()
	var converted string
	if err = s.runStage(StageConversion, func() error {
		dst, derr := ws.Derive(src, target)
		if derr != nil {
			return derr
		}
		if cerr := s.converter.Convert(ctx, src, dst, target); cerr != nil {
			return cerr
		}
		converted = dst
		return nil
	}); err != nil {
		return chat.Exchange{}, err
	}

	var transcript string
	if err = s.runStage(StageTranscription, func() error {
		resp, terr := s.transcriber.Transcribe(ctx, &speechmodel.TranscriptionRequest{
			RequestID: requestID,
			AudioPath: converted,
			Format:    target,
		})
		if terr != nil {
			return terr
		}
		transcript = strings.TrimSpace(resp.Text)
		if transcript == "" {
			return ErrEmptyTranscript
		}
		return nil
	}); err != nil {
		return chat.Exchange{}, err
	}
	log.Printf("[pipeline] request=%s transcript via %s/%s: %q", requestID, s.transcriber.Name(), s.transcriber.Model(), transcript)

	var reply string
	if err = s.runStage(StageCompletion, func() error {
		var cerr error
		reply, cerr = s.completer.Complete(ctx, transcript)
		return cerr
	}); err != nil {
		return chat.Exchange{}, err
	}
	log.Printf("[pipeline] request=%s reply via %s, length=%d", requestID, s.completer.Model(), len(reply))

	return chat.NewExchange(transcript, reply), nil
}

// saveUpload 将上传内容写入工作区，返回文件路径
func (s *Service) saveUpload(ws *audio.Workspace, requestID string, up Upload) (string, error) {
	if up.Body == nil {
		return "", ErrNoAudio
	}

	format := speechmodel.FormatFromFilename(up.Filename)
	f, err := ws.Create("upload", format)
	if err != nil {
		return "", err
	}
	path := f.Name()

	size, copyErr := io.Copy(f, up.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return "", fmt.Errorf("failed to store upload: %w", copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to store upload: %w", closeErr)
	}
	if size == 0 {
		return "", ErrNoAudio
	}

	if s.metrics != nil {
		s.metrics.RecordUploadSize(size)
	}
	log.Printf("[pipeline] request=%s received file=%q type=%q size=%d", requestID, up.Filename, up.ContentType, size)
	return path, nil
}

func (s *Service) runStage(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	if s.metrics != nil {
		s.metrics.ObserveStage(string(stage), time.Since(start))
	}
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (s *Service) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(outcome)
	}
}
