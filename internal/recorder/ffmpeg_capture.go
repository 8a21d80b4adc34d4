package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	captureChunkSize   = 4096
	releaseGracePeriod = 2 * time.Second
)

// FFmpegCapturer records from the platform audio input by running ffmpeg and
// reading Opus-in-WebM from its stdout.
type FFmpegCapturer struct {
	Binary string
	Format string
	Device string
}

// NewFFmpegCapturer fills in the platform input format and device when empty.
func NewFFmpegCapturer(binary, format, device string) *FFmpegCapturer {
	if binary == "" {
		binary = "ffmpeg"
	}
	if format == "" {
		format, device = platformInput(device)
	}
	return &FFmpegCapturer{Binary: binary, Format: format, Device: device}
}

func platformInput(device string) (string, string) {
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return "avfoundation", device
	case "windows":
		return "dshow", "audio=" + device
	default:
		if device == "" {
			device = "default"
		}
		return "pulse", device
	}
}

// Open starts ffmpeg. A missing binary or an unusable device yields ErrNoDevice.
func (c *FFmpegCapturer) Open(ctx context.Context, constraints Constraints) (Session, error) {
	if _, err := exec.LookPath(c.Binary); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if c.Format == "dshow" && c.Device == "audio=" {
		return nil, fmt.Errorf("%w: CAPTURE_DEVICE is required on windows", ErrNoDevice)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", c.Format, "-i", c.Device,
		"-ac", strconv.Itoa(constraints.Channels),
		"-ar", strconv.Itoa(constraints.SampleRate),
		"-c:a", "libopus",
		"-f", "webm", "pipe:1",
	}

	// 不绑定 ctx：停止时需要先让 ffmpeg 写完容器尾部
	cmd := exec.Command(c.Binary, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	s := &ffmpegSession{
		cmd:    cmd,
		stdin:  stdin,
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	log.Printf("[recorder] capturing from %s %q (pid %d)", c.Format, c.Device, cmd.Process.Pid)

	go s.read(stdout)
	return s, nil
}

type ffmpegSession struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	chunks chan []byte
	done   chan struct{}

	stopOnce    sync.Once
	stopErr     error
	releaseOnce sync.Once
	releaseErr  error
	waitErr     error
}

func (s *ffmpegSession) read(stdout io.Reader) {
	defer close(s.done)

	buf := make([]byte, captureChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.chunks <- chunk
		}
		if err != nil {
			break
		}
	}
	close(s.chunks)
	s.waitErr = s.cmd.Wait()
}

func (s *ffmpegSession) Chunks() <-chan []byte { return s.chunks }
func (s *ffmpegSession) Done() <-chan struct{}  { return s.done }

// Stop sends ffmpeg its interactive quit key so it finalizes the file.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if _, err := io.WriteString(s.stdin, "q"); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			s.stopErr = fmt.Errorf("failed to stop ffmpeg: %w", err)
		}
		s.stdin.Close()
	})
	return s.stopErr
}

// Release waits briefly for ffmpeg to exit and kills it otherwise.
func (s *ffmpegSession) Release() error {
	s.releaseOnce.Do(func() {
		s.Stop()

		select {
		case <-s.done:
		case <-time.After(releaseGracePeriod):
			if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.releaseErr = fmt.Errorf("failed to kill ffmpeg: %w", err)
			}
			// 读取端可能阻塞在满的 chunks 上
			go func() {
				for range s.chunks {
				}
			}()
			<-s.done
		}

		if s.waitErr != nil && s.releaseErr == nil && !isQuitExit(s.waitErr) {
			s.releaseErr = fmt.Errorf("ffmpeg exited: %v: %s", s.waitErr, lastLine(s.stderr.String()))
		}
	})
	return s.releaseErr
}

// isQuitExit reports exits caused by our own kill or quit request.
func isQuitExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return exitErr.ExitCode() == 255 || exitErr.ExitCode() == -1
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
