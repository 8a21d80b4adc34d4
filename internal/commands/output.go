package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kieran/voicechat/internal/model/chat"
	"github.com/kieran/voicechat/internal/recorder"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2563eb")).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#22d3ee")).
				Bold(true)

	errorLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171")).
			Bold(true)
)

func printExchange(w io.Writer, exchange chat.Exchange) {
	fmt.Fprintf(w, "%s %s\n\n", userLabelStyle.Render("You:"), exchange.UserMessage.Content)
	fmt.Fprintln(w, assistantLabelStyle.Render("Assistant:"))
	fmt.Fprintln(w, renderReply(exchange.AssistantMessage.Content))
}

func renderReply(content string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func formatError(err error) string {
	var uerr *recorder.UploadError
	switch {
	case errors.Is(err, recorder.ErrNoDevice):
		return errorLabelStyle.Render("Error:") + " no microphone available, set CAPTURE_FORMAT and CAPTURE_DEVICE"
	case errors.As(err, &uerr):
		msg := fmt.Sprintf("server returned %d %s", uerr.Status, uerr.Message)
		if uerr.Detail != "" {
			msg += ": " + uerr.Detail
		}
		return errorLabelStyle.Render("Error:") + " " + msg
	default:
		return errorLabelStyle.Render("Error:") + " " + err.Error()
	}
}
