package speech

import (
	"path/filepath"
	"strings"
)

// Format 音频容器格式
type Format string

const (
	FormatWebM Format = "webm"
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatOGG  Format = "ogg"
	FormatM4A  Format = "m4a"
)

// Ext 返回带点的扩展名
func (f Format) Ext() string {
	return "." + string(f)
}

// ContentType 返回对应的 MIME 类型
func (f Format) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatWAV:
		return "audio/wav"
	case FormatOGG:
		return "audio/ogg"
	case FormatM4A:
		return "audio/mp4"
	default:
		return "audio/webm"
	}
}

// FormatFromFilename 从文件名推断格式，无法识别时返回 webm
func FormatFromFilename(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return FormatMP3
	case ".wav":
		return FormatWAV
	case ".ogg", ".oga":
		return FormatOGG
	case ".m4a":
		return FormatM4A
	default:
		return FormatWebM
	}
}
