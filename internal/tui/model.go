// Package tui renders the voice chat conversation in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kieran/voicechat/internal/conversation"
	"github.com/kieran/voicechat/internal/model/chat"
	"github.com/kieran/voicechat/internal/recorder"
)

const appTitle = "Kierans Voice Chat Assistant"

// Recorder is the part of recorder.Recorder the UI drives.
type Recorder interface {
	Start(ctx context.Context) error
	State() recorder.State
	Remaining() int
	Window() int
}

// Model is the chat screen: scrolling log on top, record button below.
type Model struct {
	ctx      context.Context
	recorder Recorder
	log      *conversation.Log
	events   *Events

	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	copy     func(string) error

	state     recorder.State
	remaining int
	status    string
	statusErr bool

	width  int
	height int
	ready  bool
}

func NewModel(ctx context.Context, rec Recorder, convo *conversation.Log, events *Events) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		ctx:       ctx,
		recorder:  rec,
		log:       convo,
		events:    events,
		spinner:   s,
		copy:      clipboard.WriteAll,
		state:     rec.State(),
		remaining: rec.Remaining(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.events.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 6
		vpHeight := m.height - headerHeight - footerHeight - 2
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.renderer = newRenderer(m.bubbleWidth() - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "r", "enter":
			if m.state == recorder.StateCapturing {
				break
			}
			if err := m.recorder.Start(m.ctx); err != nil && !errors.Is(err, recorder.ErrAlreadyCapturing) {
				m.setError(err)
				break
			}
			m.status = ""

		case "c":
			reply, ok := m.log.LastReply()
			if !ok {
				break
			}
			if err := m.copy(reply.Content); err != nil {
				m.setError(fmt.Errorf("copy failed: %w", err))
				break
			}
			m.setStatus("Copied last reply to clipboard")

		case "C":
			if m.log.Len() == 0 {
				break
			}
			if err := m.copy(m.log.Transcript()); err != nil {
				m.setError(fmt.Errorf("copy failed: %w", err))
				break
			}
			m.setStatus("Copied conversation to clipboard")
		}

	case StateMsg:
		m.state = msg.State
		if m.state == recorder.StateCapturing {
			m.status = ""
		}
		cmds = append(cmds, m.events.wait())

	case CountdownMsg:
		m.remaining = msg.Remaining
		cmds = append(cmds, m.events.wait())

	case ExchangeMsg:
		if err := m.log.Append(msg.User, msg.Assistant); err != nil {
			m.setError(err)
		}
		m.updateViewport()
		m.viewport.GotoBottom()
		cmds = append(cmds, m.events.wait())

	case ErrorMsg:
		m.setError(msg.Err)
		cmds = append(cmds, m.events.wait())

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) setError(err error) {
	m.status = describeError(err)
	m.statusErr = true
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	width := m.width - 2

	header := headerStyle.Width(width).Render(titleStyle.Render(appTitle))

	var messages string
	if m.log.Len() == 0 {
		messages = lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			hintStyle.Render("No messages yet"))
	} else {
		messages = m.viewport.View()
	}
	messagesArea := messagesAreaStyle.Width(width).Render(messages)

	var footer strings.Builder
	footer.WriteString(m.renderButton(width))
	footer.WriteString("\n")
	if m.status != "" {
		if m.statusErr {
			footer.WriteString(errorStyle.Render("⚠ " + m.status))
		} else {
			footer.WriteString(hintStyle.Render(m.status))
		}
		footer.WriteString("\n")
	} else if m.state == recorder.StateUploading {
		footer.WriteString(m.spinner.View() + loadingStyle.Render(" Processing..."))
		footer.WriteString("\n")
	}
	footer.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		hintStyle.Render(fmt.Sprintf("Press r and speak for %d seconds to send a message", m.recorder.Window()))))
	footer.WriteString("\n")
	footer.WriteString(m.renderStatusBar(width))

	return lipgloss.JoinVertical(lipgloss.Left, header, messagesArea, footer.String())
}

func (m Model) renderButton(width int) string {
	var button string
	if m.state == recorder.StateCapturing {
		button = buttonDisabledStyle.Render(fmt.Sprintf("Recording... %ds", m.remaining))
	} else {
		button = buttonStyle.Render("Start Recording")
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, button)
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"r", "Record"},
		{"c", "Copy reply"},
		{"C", "Copy all"},
		{"↑↓", "Scroll"},
		{"q", "Quit"},
	}

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusBarStyle.Render(" "+s.desc))
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(items, statusBarStyle.Render("  │  ")))
}

func (m Model) bubbleWidth() int {
	w := m.viewport.Width * 4 / 5
	if w < 20 {
		w = 20
	}
	return w
}

// updateViewport re-renders every message in log order.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.bubbleWidth()

	for i, msg := range m.log.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}
		if msg.Role == chat.RoleUser {
			bubble := userBubbleStyle.MaxWidth(bubbleWidth).Render(msg.Content)
			content.WriteString(lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, bubble))
		} else {
			bubble := assistantBubbleStyle.MaxWidth(bubbleWidth).Render(m.renderMarkdown(msg.Content))
			content.WriteString(lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Left, bubble))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func (m Model) renderMarkdown(s string) string {
	if m.renderer == nil {
		return s
	}
	rendered, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(rendered, "\n")
}

func newRenderer(width int) *glamour.TermRenderer {
	if width < 10 {
		width = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// describeError turns recorder failures into a one-line status.
func describeError(err error) string {
	var uerr *recorder.UploadError
	switch {
	case errors.Is(err, recorder.ErrNoDevice):
		return "No microphone available. Check CAPTURE_FORMAT / CAPTURE_DEVICE."
	case errors.Is(err, recorder.ErrEmptyClip):
		return "Nothing was recorded. Try again."
	case errors.As(err, &uerr):
		if uerr.Detail != "" {
			return fmt.Sprintf("%s: %s", uerr.Message, uerr.Detail)
		}
		return uerr.Message
	default:
		return err.Error()
	}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, rec Recorder, convo *conversation.Log, events *Events, logFile string) error {
	if logFile != "" {
		f, err := tea.LogToFile(logFile, "voicechat")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
	} else {
		// 全屏模式下 stderr 日志会破坏画面
		log.SetOutput(io.Discard)
	}

	p := tea.NewProgram(
		NewModel(ctx, rec, convo, events),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
