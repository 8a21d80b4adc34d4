package commands

import (
	"github.com/spf13/cobra"

	"github.com/kieran/voicechat/internal/conversation"
	"github.com/kieran/voicechat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive voice chat screen",
	Long: `Start the interactive voice chat screen.

Press r to record a clip, c to copy the latest reply and q to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func runChat(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events := tui.NewEvents()
	rec := newRecorder(cfg, events.Hooks())

	return tui.Run(cmd.Context(), rec, conversation.NewLog(), events, logFileFlag)
}
