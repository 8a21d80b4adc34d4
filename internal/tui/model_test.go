package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kieran/voicechat/internal/conversation"
	"github.com/kieran/voicechat/internal/model/chat"
	"github.com/kieran/voicechat/internal/recorder"
)

type fakeRecorder struct {
	starts int
	err    error
	state  recorder.State
}

func (f *fakeRecorder) Start(context.Context) error {
	f.starts++
	return f.err
}

func (f *fakeRecorder) State() recorder.State { return f.state }
func (f *fakeRecorder) Remaining() int        { return 5 }
func (f *fakeRecorder) Window() int           { return 5 }

func newTestModel(t *testing.T, rec *fakeRecorder) (Model, *conversation.Log) {
	t.Helper()
	if rec.state == "" {
		rec.state = recorder.StateIdle
	}
	log := conversation.NewLog()
	m := NewModel(context.Background(), rec, log, NewEvents())
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40}), log
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewIdle(t *testing.T) {
	m, _ := newTestModel(t, &fakeRecorder{})

	view := m.View()
	for _, want := range []string{appTitle, "Start Recording", "speak for 5 seconds", "No messages yet"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRecordKeyStartsRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	m, _ := newTestModel(t, rec)

	m = update(t, m, key("r"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if rec.starts != 2 {
		t.Fatalf("expected 2 starts, got %d", rec.starts)
	}
	if m.status != "" {
		t.Fatalf("unexpected status: %s", m.status)
	}
}

func TestRecordKeyIgnoredWhileCapturing(t *testing.T) {
	rec := &fakeRecorder{}
	m, _ := newTestModel(t, rec)

	m = update(t, m, StateMsg{State: recorder.StateCapturing})
	m = update(t, m, key("r"))

	if rec.starts != 0 {
		t.Fatalf("expected no start while capturing, got %d", rec.starts)
	}
}

func TestStartFailureShowsStatus(t *testing.T) {
	rec := &fakeRecorder{err: recorder.ErrNoDevice}
	m, _ := newTestModel(t, rec)

	m = update(t, m, key("r"))

	if !m.statusErr || !strings.Contains(m.View(), "No microphone available") {
		t.Fatalf("expected device error in view, status=%q", m.status)
	}
}

func TestCountdownRendersButton(t *testing.T) {
	m, _ := newTestModel(t, &fakeRecorder{})

	m = update(t, m, StateMsg{State: recorder.StateCapturing})
	m = update(t, m, CountdownMsg{Remaining: 3})

	view := m.View()
	if !strings.Contains(view, "Recording... 3s") {
		t.Fatalf("expected countdown button:\n%s", view)
	}
	if strings.Contains(view, "Start Recording") {
		t.Fatal("start button should be hidden while capturing")
	}

	m = update(t, m, StateMsg{State: recorder.StateUploading})
	if !strings.Contains(m.View(), "Processing...") {
		t.Fatal("expected upload indicator")
	}
}

func TestExchangeAppendsToLog(t *testing.T) {
	m, log := newTestModel(t, &fakeRecorder{})

	m = update(t, m, ExchangeMsg{
		User:      chat.UserMessage("hello there"),
		Assistant: chat.AssistantMessage("General Kenobi"),
	})

	if log.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", log.Len())
	}
	if !strings.Contains(m.View(), "hello there") {
		t.Fatalf("expected user message in view:\n%s", m.View())
	}
}

func TestUploadErrorShowsDetail(t *testing.T) {
	m, _ := newTestModel(t, &fakeRecorder{})

	m = update(t, m, ErrorMsg{Err: &recorder.UploadError{Status: 500, Message: "Internal server error", Detail: "ffmpeg exited"}})

	if m.status != "Internal server error: ffmpeg exited" {
		t.Fatalf("unexpected status: %q", m.status)
	}
}

func TestCopyLastReply(t *testing.T) {
	m, log := newTestModel(t, &fakeRecorder{})
	var copied string
	m.copy = func(s string) error {
		copied = s
		return nil
	}

	m = update(t, m, key("c"))
	if copied != "" {
		t.Fatal("nothing should be copied from an empty log")
	}

	if err := log.Append(chat.UserMessage("hi"), chat.AssistantMessage("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	m = update(t, m, key("c"))
	if copied != "hello" {
		t.Fatalf("expected last reply copied, got %q", copied)
	}

	m.copy = func(string) error { return errors.New("no clipboard") }
	m = update(t, m, key("c"))
	if !m.statusErr {
		t.Fatal("expected copy failure status")
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t, &fakeRecorder{})

	for _, msg := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("expected quit command for %q", msg.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg for %q", msg.String())
		}
	}
}

func TestCopyConversation(t *testing.T) {
	m, log := newTestModel(t, &fakeRecorder{})
	var copied string
	m.copy = func(s string) error {
		copied = s
		return nil
	}

	if err := log.Append(chat.UserMessage("hello there"), chat.AssistantMessage("General Kenobi")); err != nil {
		t.Fatalf("append: %v", err)
	}
	m = update(t, m, key("C"))

	want := "user: hello there\nassistant: General Kenobi\n"
	if copied != want {
		t.Fatalf("expected %q, got %q", want, copied)
	}
	if m.status != "Copied conversation to clipboard" {
		t.Fatalf("unexpected status: %q", m.status)
	}
}
