package speech

// TranscriptionRequest 语音识别请求，音频以文件形式交给识别服务
type TranscriptionRequest struct {
	RequestID string `json:"requestId"`
	AudioPath string `json:"-"`
	Format    Format `json:"format"`
	Language  string `json:"language,omitempty"` // en, zh-CN, etc. 留空由服务自动识别
}
