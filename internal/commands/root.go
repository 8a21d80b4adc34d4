// Package commands provides the voicechat client CLI.
package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kieran/voicechat/internal/config"
	"github.com/kieran/voicechat/internal/recorder"
)

const uploadTimeout = 2 * time.Minute

var (
	// Global flags
	serverFlag  string
	secondsFlag int
	logFileFlag string

	// Version info (set at build time)
	Version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "voicechat",
	Short: "Talk to the voice chat assistant from the terminal",
	Long: `voicechat records a short clip from the microphone, sends it to the
voice chat server and shows the transcript together with the reply.

Examples:
  voicechat chat                     Start the interactive chat screen
  voicechat once                     Record one clip and print the reply
  voicechat send question.wav        Send an existing recording
  voicechat -s http://host:8080      Use another server`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "voicechat %s\n", Version)
			return nil
		}
		return runChat(cmd)
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "Voice chat server URL (default from VOICECHAT_SERVER)")
	rootCmd.PersistentFlags().IntVar(&secondsFlag, "seconds", 0, "Recording length in seconds (default from RECORD_SECONDS)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Write debug logs to this file")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(sendCmd)
}

// loadConfig reads env/file config and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if serverFlag != "" {
		cfg.Recorder.ServerURL = strings.TrimRight(serverFlag, "/")
	}
	if secondsFlag < 0 {
		return nil, fmt.Errorf("invalid --seconds value %d: must be positive", secondsFlag)
	}
	if secondsFlag > 0 {
		cfg.Recorder.Window = time.Duration(secondsFlag) * time.Second
	}
	return cfg, nil
}

func newUploader(cfg *config.Config) *recorder.Uploader {
	return recorder.NewUploader(cfg.Recorder.ServerURL, &http.Client{Timeout: uploadTimeout})
}

func newRecorder(cfg *config.Config, hooks recorder.Hooks) *recorder.Recorder {
	capturer := recorder.NewFFmpegCapturer(cfg.Pipeline.FFmpegPath, cfg.Recorder.CaptureFormat, cfg.Recorder.CaptureDevice)
	return recorder.New(capturer, newUploader(cfg), recorder.Options{
		Window: cfg.Recorder.Window,
		Hooks:  hooks,
	})
}
