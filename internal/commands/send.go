package commands

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kieran/voicechat/internal/recorder"
)

var sendCmd = &cobra.Command{
	Use:   "send <audio-file>",
	Short: "Send an existing recording instead of using the microphone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		if len(data) == 0 {
			return recorder.ErrEmptyClip
		}

		clip := recorder.AudioClip{
			Data:        data,
			Filename:    filepath.Base(args[0]),
			ContentType: contentTypeFor(args[0]),
		}

		exchange, err := newUploader(cfg).Upload(cmd.Context(), clip)
		if err != nil {
			return err
		}
		printExchange(cmd.OutOrStdout(), exchange)
		return nil
	},
}

var audioTypes = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
