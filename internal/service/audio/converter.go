package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kieran/voicechat/internal/model/speech"
)

// Converter 将音频转码为目标格式并写到 dst
type Converter interface {
	Convert(ctx context.Context, src, dst string, target speech.Format) error
}

// ConversionError 转码失败，与上传和网络错误区分
type ConversionError struct {
	Target speech.Format
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("audio conversion to %s failed: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("audio conversion to %s failed: %v: %s", e.Target, e.Err, e.Output)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// FFmpegConverter shells out to an ffmpeg binary.
type FFmpegConverter struct {
	Binary string
}

// NewFFmpegConverter 创建 ffmpeg 转码器，binary 为空时从 PATH 查找
func NewFFmpegConverter(binary string) *FFmpegConverter {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegConverter{Binary: binary}
}

// Convert 执行一次 ffmpeg，失败不重试
func (c *FFmpegConverter) Convert(ctx context.Context, src, dst string, target speech.Format) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", src, "-vn"}
	args = append(args, codecArgs(target)...)
	args = append(args, dst)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("ffmpeg binary %q not found: %w", c.Binary, err)
		}
		return &ConversionError{Target: target, Output: lastLine(stderr.String()), Err: err}
	}
	return nil
}

func codecArgs(target speech.Format) []string {
	switch target {
	case speech.FormatWAV:
		// 识别服务要求 16kHz 单声道 PCM
		return []string{"-ac", "1", "-ar", "16000", "-acodec", "pcm_s16le", "-f", "wav"}
	case speech.FormatMP3:
		return []string{"-acodec", "libmp3lame", "-f", "mp3"}
	default:
		return []string{"-f", string(target)}
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
