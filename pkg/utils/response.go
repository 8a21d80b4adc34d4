package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/kieran/voicechat/internal/model/chat"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondMessage 发送只有 message 字段的响应
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, chat.ErrorBody{Message: message})
}

// RespondError 发送错误响应，detail 为具体的错误信息
func RespondError(w http.ResponseWriter, status int, message string, detail string) {
	RespondJSON(w, status, chat.ErrorBody{Message: message, Error: detail})
}
