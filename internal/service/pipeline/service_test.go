package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kieran/voicechat/internal/metrics"
	"github.com/kieran/voicechat/internal/model/chat"
	speechmodel "github.com/kieran/voicechat/internal/model/speech"
)

// callLog records the order in which the fakes were invoked.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeConverter copies the source file so the transcriber can read it back.
type fakeConverter struct {
	log *callLog
	err error
}

func (f *fakeConverter) Convert(ctx context.Context, src, dst string, target speechmodel.Format) error {
	f.log.add("convert")
	if f.err != nil {
		// ffmpeg leaves a partial output behind on failure.
		os.WriteFile(dst, []byte("partial"), 0o600)
		return f.err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

// fakeTranscriber returns the content of the converted file, or a fixed text.
type fakeTranscriber struct {
	log       *callLog
	text      string
	err       error
	paths     []string
	sawExists bool
	mu        sync.Mutex
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req *speechmodel.TranscriptionRequest) (*speechmodel.TranscriptionResponse, error) {
	f.log.add("transcribe")
	data, readErr := os.ReadFile(req.AudioPath)

	f.mu.Lock()
	f.paths = append(f.paths, req.AudioPath)
	f.sawExists = readErr == nil
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if readErr != nil {
		return nil, readErr
	}
	text := f.text
	if text == "" {
		text = string(data)
	}
	return &speechmodel.TranscriptionResponse{RequestID: req.RequestID, Text: text}, nil
}

func (f *fakeTranscriber) Name() string                     { return "fake" }
func (f *fakeTranscriber) Model() string                    { return "fake-stt" }
func (f *fakeTranscriber) InputFormat() speechmodel.Format { return speechmodel.FormatMP3 }

type fakeCompleter struct {
	log     *callLog
	replies map[string]string
	err     error
	prompts []string
	mu      sync.Mutex
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.log.add("complete")
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if reply, ok := f.replies[prompt]; ok {
		return reply, nil
	}
	return "echo: " + prompt, nil
}

func (f *fakeCompleter) Model() string { return "fake-chat" }

type harness struct {
	dir         string
	log         *callLog
	converter   *fakeConverter
	transcriber *fakeTranscriber
	completer   *fakeCompleter
	metrics     *metrics.Metrics
	service     *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir(), log: &callLog{}}
	h.converter = &fakeConverter{log: h.log}
	h.transcriber = &fakeTranscriber{log: h.log}
	h.completer = &fakeCompleter{log: h.log, replies: map[string]string{}}
	h.metrics = metrics.NewMetrics(prometheus.NewRegistry())
	h.service = NewService(h.dir, h.converter, h.transcriber, h.completer, h.metrics)
	return h
}

func (h *harness) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("temp files leaked: %v", names)
	}
}

func upload(body string) Upload {
	return Upload{Filename: "recording.webm", ContentType: "audio/webm", Body: strings.NewReader(body)}
}

func TestProcessHelloThere(t *testing.T) {
	h := newHarness(t)
	h.transcriber.text = "hello there"
	h.completer.replies["hello there"] = "Hi! How can I help you today?"

	exchange, err := h.service.Process(context.Background(), upload("webm-bytes"))
	if err != nil {
		t.Fatalf("Process err: %v", err)
	}

	want := chat.Exchange{
		UserMessage:      chat.Message{Role: chat.RoleUser, Content: "hello there"},
		AssistantMessage: chat.Message{Role: chat.RoleAssistant, Content: "Hi! How can I help you today?"},
	}
	if exchange != want {
		t.Fatalf("unexpected exchange: %+v", exchange)
	}
	if len(h.completer.prompts) != 1 || h.completer.prompts[0] != "hello there" {
		t.Fatalf("completion should receive the transcript only, got %v", h.completer.prompts)
	}
	if got := testutil.ToFloat64(h.metrics.PipelineRequests.WithLabelValues(metrics.OutcomeSuccess)); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	h.assertNoTempFiles(t)
}

func TestProcessRunsStagesInOrder(t *testing.T) {
	h := newHarness(t)

	if _, err := h.service.Process(context.Background(), upload("clip")); err != nil {
		t.Fatalf("Process err: %v", err)
	}

	got := strings.Join(h.log.snapshot(), ",")
	if got != "convert,transcribe,complete" {
		t.Fatalf("unexpected call order: %s", got)
	}
	if !h.transcriber.sawExists {
		t.Fatal("transcriber ran before the converted file existed")
	}
	if !strings.HasSuffix(h.transcriber.paths[0], ".mp3") {
		t.Fatalf("transcriber should receive the converted file, got %s", h.transcriber.paths[0])
	}
}

func TestProcessFailuresCleanUp(t *testing.T) {
	cases := []struct {
		name      string
		setup     func(h *harness)
		wantStage Stage
		wantCalls string
	}{
		{
			name:      "conversion",
			setup:     func(h *harness) { h.converter.err = errors.New("Invalid data found when processing input") },
			wantStage: StageConversion,
			wantCalls: "convert",
		},
		{
			name:      "transcription",
			setup:     func(h *harness) { h.transcriber.err = errors.New("503 from provider") },
			wantStage: StageTranscription,
			wantCalls: "convert,transcribe",
		},
		{
			name:      "empty transcript",
			setup:     func(h *harness) { h.transcriber.text = "   " },
			wantStage: StageTranscription,
			wantCalls: "convert,transcribe",
		},
		{
			name:      "completion",
			setup:     func(h *harness) { h.completer.err = errors.New("rate limited") },
			wantStage: StageCompletion,
			wantCalls: "convert,transcribe,complete",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			tc.setup(h)

			exchange, err := h.service.Process(context.Background(), upload("clip"))
			if err == nil {
				t.Fatal("expected error")
			}
			if exchange != (chat.Exchange{}) {
				t.Fatalf("no partial result expected, got %+v", exchange)
			}

			stage, ok := FailedStage(err)
			if !ok || stage != tc.wantStage {
				t.Fatalf("expected %s stage error, got %v", tc.wantStage, err)
			}
			if got := strings.Join(h.log.snapshot(), ","); got != tc.wantCalls {
				t.Fatalf("unexpected calls: %s", got)
			}
			if got := testutil.ToFloat64(h.metrics.PipelineRequests.WithLabelValues(string(tc.wantStage))); got != 1 {
				t.Fatalf("expected failure outcome for %s, got %v", tc.wantStage, got)
			}
			h.assertNoTempFiles(t)
		})
	}
}

func TestProcessEmptyUpload(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Process(context.Background(), upload(""))
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	if calls := h.log.snapshot(); len(calls) != 0 {
		t.Fatalf("expected no downstream calls, got %v", calls)
	}
	h.assertNoTempFiles(t)
}

func TestProcessConcurrentRequestsStayIsolated(t *testing.T) {
	h := newHarness(t)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]chat.Exchange, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.service.Process(context.Background(), upload(fmt.Sprintf("clip-%02d", i)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		want := fmt.Sprintf("clip-%02d", i)
		if results[i].UserMessage.Content != want || results[i].AssistantMessage.Content != "echo: "+want {
			t.Fatalf("request %d got mixed result: %+v", i, results[i])
		}
	}
	h.assertNoTempFiles(t)
}
