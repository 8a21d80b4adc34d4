package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"gopkg.in/yaml.v3"

	speechmodel "github.com/kieran/voicechat/internal/model/speech"
)

// 行为兼容的默认值，不随部署变化。
const (
	DefaultRecordWindow       = 5 * time.Second
	DefaultMaxTokens          = 1000
	DefaultTranscriptionModel = "whisper-1"
	DefaultChatModel          = "gpt-4o-mini"
	DefaultServerURL          = "http://localhost:8080"
)

// Transcription providers.
const (
	ProviderWhisper    = "whisper"
	ProviderVolcengine = "volcengine"
)

// Chat providers.
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Pipeline PipelineConfig
	Speech   SpeechConfig
	AI       AIConfig
	Recorder RecorderConfig
}

// Load 从环境变量加载配置，VOICECHAT_CONFIG 指向的 YAML 文件提供默认值。
func Load() (*Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("VOICECHAT_CONFIG")))
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(file)
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig(file)
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig(file)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(file)
	if err != nil {
		return nil, err
	}

	recorder, err := loadRecorderConfig(file)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Pipeline: pipeline, Speech: speech, AI: ai, Recorder: recorder}, nil
}

// fileConfig mirrors the optional YAML file. Every field is a default that
// the matching environment variable overrides.
type fileConfig struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Pipeline struct {
		TempDir    string `yaml:"temp_dir"`
		FFmpegPath string `yaml:"ffmpeg_path"`
	} `yaml:"pipeline"`
	Transcription struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"transcription"`
	Chat struct {
		Provider  string `yaml:"provider"`
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url"`
		Region    string `yaml:"region"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"chat"`
	Recorder struct {
		Server        string `yaml:"server"`
		Seconds       int    `yaml:"seconds"`
		CaptureFormat string `yaml:"capture_format"`
		CaptureDevice string `yaml:"capture_device"`
	} `yaml:"recorder"`
}

func loadFile(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(file *fileConfig) (ServerConfig, error) {
	port := getEnvOrDefault("PORT", firstNonEmpty(file.Server.Port, "8080"))

	origins := file.Server.AllowedOrigins
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins = splitList(raw)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// PipelineConfig 描述转写流水线使用的本地资源。
type PipelineConfig struct {
	TempDir    string
	FFmpegPath string
}

func loadPipelineConfig(file *fileConfig) (PipelineConfig, error) {
	tempDir := getEnvOrDefault("TEMP_DIR", firstNonEmpty(file.Pipeline.TempDir, filepath.Join(os.TempDir(), "voicechat")))
	if !filepath.IsAbs(tempDir) {
		abs, err := filepath.Abs(tempDir)
		if err != nil {
			return PipelineConfig{}, fmt.Errorf("invalid TEMP_DIR value %q: %w", tempDir, err)
		}
		tempDir = abs
	}

	return PipelineConfig{
		TempDir:    tempDir,
		FFmpegPath: getEnvOrDefault("FFMPEG_PATH", firstNonEmpty(file.Pipeline.FFmpegPath, "ffmpeg")),
	}, nil
}

// SpeechConfig 描述语音识别服务配置
type SpeechConfig struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	AppID         string
	AccessToken   string
	BaseURL       string
	Model         string
	Language      string
	Timeout       int
}

// Enabled 表示所选服务的凭证是否齐全。
func (c SpeechConfig) Enabled() bool {
	return c.ToModel().CheckCredentials(c.Provider) == nil
}

// ToModel 转换为语音服务使用的配置结构。
func (c SpeechConfig) ToModel() *speechmodel.SpeechConfig {
	return &speechmodel.SpeechConfig{
		AppID:         c.AppID,
		AccessToken:   c.AccessToken,
		BaseURL:       c.BaseURL,
		OpenAIKey:     c.OpenAIKey,
		OpenAIBaseURL: c.OpenAIBaseURL,
		Model:         c.Model,
		Language:      c.Language,
		Timeout:       c.Timeout,
	}
}

func loadSpeechConfig(file *fileConfig) (SpeechConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("TRANSCRIPTION_PROVIDER", firstNonEmpty(file.Transcription.Provider, ProviderWhisper)))
	if provider != ProviderWhisper && provider != ProviderVolcengine {
		return SpeechConfig{}, fmt.Errorf("invalid TRANSCRIPTION_PROVIDER value %q", provider)
	}

	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 0
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	defaultModel := DefaultTranscriptionModel
	if provider == ProviderVolcengine {
		defaultModel = "bigmodel"
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		accessToken = strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	}

	return SpeechConfig{
		Provider:      provider,
		OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", file.Transcription.BaseURL),
		AppID:         strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken:   accessToken,
		BaseURL:       getEnvOrDefault("SPEECH_BASE_URL", ""),
		Model:         getEnvOrDefault("TRANSCRIPTION_MODEL", firstNonEmpty(file.Transcription.Model, defaultModel)),
		Language:      getEnvOrDefault("TRANSCRIPTION_LANGUAGE", file.Transcription.Language),
		Timeout:       timeoutSeconds,
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	Region    string
	MaxTokens int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && c.APIKey != ""
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，需要 CHAT_API_KEY/ARK_API_KEY 与 CHAT_MODEL")
	}

	maxTokens := c.MaxTokens
	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		Model:     c.Model,
		MaxTokens: &maxTokens,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig(file *fileConfig) (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("CHAT_PROVIDER", firstNonEmpty(file.Chat.Provider, ProviderOpenAI)))

	maxTokens := DefaultMaxTokens
	if file.Chat.MaxTokens > 0 {
		maxTokens = file.Chat.MaxTokens
	}
	if override, err := parseOptionalIntEnv("CHAT_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("invalid CHAT_MAX_TOKENS value %d: must be positive", *override)
		}
		maxTokens = *override
	}

	apiKey := strings.TrimSpace(os.Getenv("CHAT_API_KEY"))
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		}
		return AIConfig{
			Provider:  provider,
			APIKey:    apiKey,
			Model:     getEnvOrDefault("CHAT_MODEL", firstNonEmpty(file.Chat.Model, DefaultChatModel)),
			BaseURL:   getEnvOrDefault("CHAT_BASE_URL", file.Chat.BaseURL),
			MaxTokens: maxTokens,
		}, nil
	case ProviderArk:
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		}
		return AIConfig{
			Provider:  provider,
			APIKey:    apiKey,
			Model:     getEnvOrDefault("CHAT_MODEL", file.Chat.Model),
			BaseURL:   getEnvOrDefault("CHAT_BASE_URL", firstNonEmpty(file.Chat.BaseURL, "https://ark.cn-beijing.volces.com/api/v3")),
			Region:    getEnvOrDefault("ARK_REGION", firstNonEmpty(file.Chat.Region, "cn-beijing")),
			MaxTokens: maxTokens,
		}, nil
	default:
		return AIConfig{}, fmt.Errorf("invalid CHAT_PROVIDER value %q", provider)
	}
}

// RecorderConfig 描述录音客户端配置。
type RecorderConfig struct {
	ServerURL     string
	Window        time.Duration
	CaptureFormat string
	CaptureDevice string
}

func loadRecorderConfig(file *fileConfig) (RecorderConfig, error) {
	window := DefaultRecordWindow
	if file.Recorder.Seconds > 0 {
		window = time.Duration(file.Recorder.Seconds) * time.Second
	}
	if seconds, err := parseOptionalIntEnv("RECORD_SECONDS"); err != nil {
		return RecorderConfig{}, err
	} else if seconds != nil {
		if *seconds < 1 {
			return RecorderConfig{}, fmt.Errorf("invalid RECORD_SECONDS value %d: must be positive", *seconds)
		}
		window = time.Duration(*seconds) * time.Second
	}

	return RecorderConfig{
		ServerURL:     strings.TrimRight(getEnvOrDefault("VOICECHAT_SERVER", firstNonEmpty(file.Recorder.Server, DefaultServerURL)), "/"),
		Window:        window,
		CaptureFormat: getEnvOrDefault("CAPTURE_FORMAT", file.Recorder.CaptureFormat),
		CaptureDevice: getEnvOrDefault("CAPTURE_DEVICE", file.Recorder.CaptureDevice),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
