package pipeline

import (
	"errors"
	"fmt"
)

// Stage 流水线阶段名称，同时用作日志和指标标签
type Stage string

const (
	StageUpload        Stage = "upload"
	StageConversion    Stage = "conversion"
	StageTranscription Stage = "transcription"
	StageCompletion    Stage = "completion"
)

var (
	// ErrNoAudio 请求中没有音频内容
	ErrNoAudio = errors.New("no audio file provided")
	// ErrEmptyTranscript 识别结果为空，无法继续对话
	ErrEmptyTranscript = errors.New("transcription returned no text")
)

// StageError 记录失败发生在哪个阶段
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage reports the stage carried by err, if any.
func FailedStage(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
