package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kieran/voicechat/internal/recorder"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Record a single clip and print the reply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		rec := newRecorder(cfg, recorder.Hooks{
			OnTick: func(remaining int) {
				fmt.Fprintf(stderr, "\rRecording... %ds ", remaining)
			},
			OnState: func(s recorder.State) {
				if s == recorder.StateUploading {
					fmt.Fprint(stderr, "\rWaiting for reply...\n")
				}
			},
		})

		fmt.Fprintf(stderr, "Speak for %d seconds\n", rec.Window())
		exchange, err := rec.Record(cmd.Context())
		if err != nil {
			return err
		}
		printExchange(cmd.OutOrStdout(), exchange)
		return nil
	},
}
