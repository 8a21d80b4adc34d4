package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kieran/voicechat/internal/model/chat"
)

var (
	// ErrAlreadyCapturing is returned when a capture is requested while one is running.
	ErrAlreadyCapturing = errors.New("a recording is already in progress")
	// ErrEmptyClip 录音没有产生任何数据
	ErrEmptyClip = errors.New("recording produced no audio")
)

const drainTimeout = 3 * time.Second

// Hooks are optional observers. They are called from recorder goroutines.
type Hooks struct {
	OnState    func(State)
	OnTick     func(remaining int)
	OnComplete func(user, assistant chat.Message)
	OnError    func(error)
}

// Options configures a Recorder.
type Options struct {
	// Window is the length of a clip. Defaults to five seconds.
	Window time.Duration
	// Tick is the countdown resolution. Defaults to one second.
	Tick  time.Duration
	Hooks Hooks
}

// Recorder captures one bounded clip at a time and uploads it.
//
// Capturing → Uploading → Idle. A new capture is rejected only while
// Capturing; it may start while a previous clip is still uploading.
type Recorder struct {
	capturer Capturer
	sender   Sender
	window   time.Duration
	tick     time.Duration
	hooks    Hooks

	countdown Countdown

	mu         sync.Mutex
	state      State
	remaining  int
	generation uint64
	uploads    int
}

func New(capturer Capturer, sender Sender, opts Options) *Recorder {
	if opts.Window <= 0 {
		opts.Window = 5 * time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	r := &Recorder{
		capturer: capturer,
		sender:   sender,
		window:   opts.Window,
		tick:     opts.Tick,
		hooks:    opts.Hooks,
		state:    StateIdle,
	}
	r.remaining = r.steps(r.window)
	return r
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Remaining returns the countdown display value in ticks.
func (r *Recorder) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Window returns the countdown start value in ticks.
func (r *Recorder) Window() int {
	return r.steps(r.window)
}

// Record captures, uploads and returns the resulting exchange. It blocks
// until the upload finishes.
func (r *Recorder) Record(ctx context.Context) (chat.Exchange, error) {
	gen, err := r.begin()
	if err != nil {
		return chat.Exchange{}, err
	}
	return r.run(ctx, gen)
}

// Start begins a capture in the background. Success is reported through
// Hooks.OnComplete; failures are logged and reported through Hooks.OnError.
func (r *Recorder) Start(ctx context.Context) error {
	gen, err := r.begin()
	if err != nil {
		return err
	}

	go func() {
		exchange, err := r.run(ctx, gen)
		if err != nil {
			log.Printf("[recorder] recording failed: %v", err)
			if r.hooks.OnError != nil {
				r.hooks.OnError(err)
			}
			return
		}
		if r.hooks.OnComplete != nil {
			r.hooks.OnComplete(exchange.UserMessage, exchange.AssistantMessage)
		}
	}()
	return nil
}

func (r *Recorder) begin() (uint64, error) {
	r.mu.Lock()
	if r.state == StateCapturing {
		r.mu.Unlock()
		return 0, ErrAlreadyCapturing
	}
	r.generation++
	gen := r.generation
	r.state = StateCapturing
	r.remaining = r.steps(r.window)
	remaining := r.remaining
	r.mu.Unlock()

	r.notifyState(StateCapturing)
	r.notifyTick(remaining)
	return gen, nil
}

func (r *Recorder) run(ctx context.Context, gen uint64) (chat.Exchange, error) {
	clip, err := r.capture(ctx)
	if err != nil {
		r.finishCapture(gen, false)
		return chat.Exchange{}, err
	}

	r.finishCapture(gen, true)
	log.Printf("[recorder] uploading %d bytes (%s)", len(clip.Data), clip.Duration.Round(time.Millisecond))

	exchange, err := r.sender.Upload(ctx, clip)
	r.finishUpload()
	if err != nil {
		return chat.Exchange{}, fmt.Errorf("upload failed: %w", err)
	}
	return exchange, nil
}

// capture records until the window expires, the session ends on its own, or
// ctx is cancelled. The countdown is cancelled and the device released on
// every path.
func (r *Recorder) capture(ctx context.Context) (AudioClip, error) {
	session, err := r.capturer.Open(ctx, DefaultConstraints)
	if err != nil {
		return AudioClip{}, fmt.Errorf("failed to open audio input: %w", err)
	}

	started := time.Now()
	expired := make(chan struct{})
	var expireOnce sync.Once

	r.countdown.Start(r.window, r.tick,
		func(remaining time.Duration) {
			steps := r.steps(remaining)
			r.mu.Lock()
			r.remaining = steps
			r.mu.Unlock()
			r.notifyTick(steps)
		},
		func() { expireOnce.Do(func() { close(expired) }) },
	)

	var buf bytes.Buffer
	chunks := session.Chunks()
	var cancelled error

collect:
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				break collect
			}
			buf.Write(chunk)
		case <-expired:
			break collect
		case <-session.Done():
			break collect
		case <-ctx.Done():
			cancelled = ctx.Err()
			break collect
		}
	}

	r.countdown.Stop()
	stopErr := session.Stop()

	if chunks != nil && cancelled == nil {
		drainChunks(chunks, &buf)
	}

	if err := session.Release(); err != nil {
		log.Printf("[recorder] release failed: %v", err)
	}

	switch {
	case cancelled != nil:
		return AudioClip{}, fmt.Errorf("recording cancelled: %w", cancelled)
	case stopErr != nil && buf.Len() == 0:
		return AudioClip{}, stopErr
	case buf.Len() == 0:
		return AudioClip{}, ErrEmptyClip
	case stopErr != nil:
		log.Printf("[recorder] stop failed, keeping %d bytes: %v", buf.Len(), stopErr)
	}

	return AudioClip{
		Data:        buf.Bytes(),
		Filename:    defaultFilename,
		ContentType: "audio/webm",
		Duration:    time.Since(started),
	}, nil
}

// drainChunks collects what the encoder flushes after Stop.
func drainChunks(chunks <-chan []byte, buf *bytes.Buffer) {
	timeout := time.NewTimer(drainTimeout)
	defer timeout.Stop()
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			buf.Write(chunk)
		case <-timeout.C:
			log.Printf("[recorder] encoder did not flush within %s", drainTimeout)
			return
		}
	}
}

func (r *Recorder) finishCapture(gen uint64, uploading bool) {
	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return
	}
	if uploading {
		r.uploads++
	}
	next := StateIdle
	if r.uploads > 0 {
		next = StateUploading
	}
	r.state = next
	r.remaining = r.steps(r.window)
	remaining := r.remaining
	r.mu.Unlock()

	r.notifyTick(remaining)
	r.notifyState(next)
}

// finishUpload returns to Idle unless a newer capture has taken over.
func (r *Recorder) finishUpload() {
	r.mu.Lock()
	r.uploads--
	if r.state != StateUploading || r.uploads > 0 {
		r.mu.Unlock()
		return
	}
	r.state = StateIdle
	r.mu.Unlock()

	r.notifyState(StateIdle)
}

func (r *Recorder) steps(d time.Duration) int {
	n := int(d / r.tick)
	if d%r.tick != 0 {
		n++
	}
	return n
}

func (r *Recorder) notifyState(s State) {
	if r.hooks.OnState != nil {
		r.hooks.OnState(s)
	}
}

func (r *Recorder) notifyTick(remaining int) {
	if r.hooks.OnTick != nil {
		r.hooks.OnTick(remaining)
	}
}
