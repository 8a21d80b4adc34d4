package recorder

import (
	"context"
	"errors"
	"time"
)

// ErrNoDevice is returned when no audio input can be opened.
var ErrNoDevice = errors.New("no audio input device available")

// Constraints 采集参数
type Constraints struct {
	Channels   int
	SampleRate int
}

// DefaultConstraints requests mono 16 kHz input.
var DefaultConstraints = Constraints{Channels: 1, SampleRate: 16000}

// Capturer opens the audio input device.
type Capturer interface {
	Open(ctx context.Context, c Constraints) (Session, error)
}

// Session is an open capture. Chunks is closed once the encoder has flushed
// everything; Done is closed when the session ends on its own.
type Session interface {
	Chunks() <-chan []byte
	Done() <-chan struct{}
	// Stop asks the encoder to finish the container. It does not block.
	Stop() error
	// Release frees the device. It is safe to call more than once.
	Release() error
}

// AudioClip is one finished recording.
type AudioClip struct {
	Data        []byte
	Filename    string
	ContentType string
	Duration    time.Duration
}
