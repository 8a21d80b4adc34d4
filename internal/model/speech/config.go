package speech

// SpeechConfig 语音识别服务配置
type SpeechConfig struct {
	// Volcengine 配置
	AppID       string `json:"appId"`            // 火山引擎 APP ID
	AccessToken string `json:"accessToken"`      // 火山引擎 Access Token
	APIKey      string `json:"apiKey,omitempty"` // 兼容旧配置的 API Key
	BaseURL     string `json:"baseUrl"`          // WebSocket 地址，留空使用官方端点
	ResourceID  string `json:"resourceId"`

	// Whisper / OpenAI 配置
	OpenAIKey     string `json:"-"`
	OpenAIBaseURL string `json:"openaiBaseUrl,omitempty"`

	Model    string `json:"model"`
	Language string `json:"language"`

	Timeout int `json:"timeout"` // seconds, 0 表示不额外限制
}
