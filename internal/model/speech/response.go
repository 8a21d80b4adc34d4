package speech

import "time"

// TranscriptionResponse 语音识别响应
type TranscriptionResponse struct {
	RequestID string    `json:"requestId,omitempty"`
	Text      string    `json:"text"`
	Duration  int64     `json:"duration,omitempty"` // milliseconds
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}
