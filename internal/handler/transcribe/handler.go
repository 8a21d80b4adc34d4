package transcribe

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kieran/voicechat/internal/model/chat"
	"github.com/kieran/voicechat/internal/service/pipeline"
	"github.com/kieran/voicechat/pkg/utils"
)

const (
	audioField = "audio"

	msgMethodNotAllowed = "Method not allowed"
	msgBadRequest       = "Bad request"
	msgInternalError    = "Internal server error"
	msgNoAudio          = "No audio file provided"
)

// Processor 抽象转写流水线，便于测试替换
type Processor interface {
	Process(ctx context.Context, up pipeline.Upload) (chat.Exchange, error)
}

// Handler 处理录音上传：转码、识别并返回对话回复
type Handler struct {
	processor Processor
}

// New 创建转写处理器
func New(processor Processor) *Handler {
	return &Handler{processor: processor}
}

// RegisterRoutes 注册转写路由。所有方法都进入处理器，由处理器返回 405。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/transcribe", h.handleTranscribe)
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		utils.RespondMessage(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	requestID := middleware.GetReqID(r.Context())

	reader, watcher, err := openMultipart(r)
	if err != nil {
		h.respondParseError(w, requestID, err)
		return
	}

	// 流式读取，只使用第一个带文件名的 audio 字段
	var audioPart io.Reader
	var filename, contentType string
	for audioPart == nil {
		part, err := reader.NextPart()
		if err == io.EOF && watcher.Closed() {
			break
		}
		if err != nil {
			h.respondParseError(w, requestID, err)
			return
		}
		if part.FormName() != audioField || part.FileName() == "" {
			continue
		}
		audioPart = part
		filename = part.FileName()
		contentType = part.Header.Get("Content-Type")
	}

	if audioPart == nil {
		log.Printf("[transcribe] request=%s rejected: no audio part", requestID)
		utils.RespondError(w, http.StatusBadRequest, msgBadRequest, msgNoAudio)
		return
	}

	exchange, err := h.processor.Process(r.Context(), pipeline.Upload{
		RequestID:   requestID,
		Filename:    filename,
		ContentType: contentType,
		Body:        audioPart,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNoAudio) {
			log.Printf("[transcribe] request=%s rejected: empty audio part", requestID)
			utils.RespondError(w, http.StatusBadRequest, msgBadRequest, msgNoAudio)
			return
		}

		stage, _ := pipeline.FailedStage(err)
		log.Printf("[transcribe] request=%s stage=%s failed: %v", requestID, stage, err)
		utils.RespondError(w, http.StatusInternalServerError, msgInternalError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, exchange)
}

// respondParseError 请求体无法解析时返回 500，保留具体原因
func (h *Handler) respondParseError(w http.ResponseWriter, requestID string, err error) {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	log.Printf("[transcribe] request=%s failed to parse multipart form: %v", requestID, err)
	utils.RespondError(w, http.StatusInternalServerError, msgInternalError, "failed to parse multipart form: "+err.Error())
}
