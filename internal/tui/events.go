package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kieran/voicechat/internal/model/chat"
	"github.com/kieran/voicechat/internal/recorder"
)

// Messages delivered from the recorder goroutines to the program.
type (
	StateMsg struct {
		State recorder.State
	}
	CountdownMsg struct {
		Remaining int
	}
	ExchangeMsg struct {
		User      chat.Message
		Assistant chat.Message
	}
	ErrorMsg struct {
		Err error
	}
)

// Events bridges recorder hooks into the bubbletea update loop.
type Events struct {
	ch chan tea.Msg
}

func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, 64)}
}

// Hooks returns recorder hooks that forward every notification as a message.
func (e *Events) Hooks() recorder.Hooks {
	return recorder.Hooks{
		OnState:    func(s recorder.State) { e.ch <- StateMsg{State: s} },
		OnTick:     func(remaining int) { e.ch <- CountdownMsg{Remaining: remaining} },
		OnComplete: func(user, assistant chat.Message) { e.ch <- ExchangeMsg{User: user, Assistant: assistant} },
		OnError:    func(err error) { e.ch <- ErrorMsg{Err: err} },
	}
}

// wait blocks for the next recorder event.
func (e *Events) wait() tea.Cmd {
	return func() tea.Msg {
		return <-e.ch
	}
}
