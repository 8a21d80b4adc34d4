package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kieran/voicechat/internal/model/speech"
)

const (
	defaultASRURL      = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"
	defaultResourceID  = "volc.bigasr.sauc.duration" // 小时版
	asrChunkSize       = 6400                         // 16kHz, 16bit, mono, 200ms
	asrSuccessCode     = 20000000
	asrHandshakeTimout = 30 * time.Second
)

// VolcengineASRClient 火山引擎ASR WebSocket客户端，每次识别建立一条连接
type VolcengineASRClient struct {
	config *speech.SpeechConfig
	dialer *websocket.Dialer
	url    string
}

// NewVolcengineASRClient 创建火山引擎ASR客户端
func NewVolcengineASRClient(config *speech.SpeechConfig) (*VolcengineASRClient, error) {
	if _, _, err := config.VolcengineCredentials(); err != nil {
		return nil, err
	}

	url := strings.TrimSpace(config.BaseURL)
	if url == "" {
		url = defaultASRURL
	}

	return &VolcengineASRClient{
		config: config,
		url:    url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: asrHandshakeTimout,
		},
	}, nil
}

func (c *VolcengineASRClient) Name() string { return "volcengine" }

func (c *VolcengineASRClient) Model() string {
	if c.config.Model != "" {
		return c.config.Model
	}
	return "bigmodel"
}

func (c *VolcengineASRClient) InputFormat() speech.Format { return speech.FormatWAV }

// asrRequest 火山引擎ASR请求结构（按文档格式）
type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user,omitempty"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName  string `json:"model_name"`
		EnableITN  bool   `json:"enable_itn,omitempty"`
		EnablePunc bool   `json:"enable_punc,omitempty"`
		ResultType string `json:"result_type,omitempty"`
	} `json:"request"`
}

type asrServerMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string `json:"text"`
		Utterances []struct {
			Text string `json:"text"`
		} `json:"utterances,omitempty"`
	} `json:"result,omitempty"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info,omitempty"`
}

// Transcribe 使用WebSocket协议识别整段音频，失败时不重试
func (c *VolcengineASRClient) Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error) {
	appID, token, err := c.config.VolcengineCredentials()
	if err != nil {
		return nil, err
	}

	audioData, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if len(audioData) == 0 {
		return nil, errors.New("no audio data to send")
	}

	ctx, cancel := withTimeout(ctx, c.config.Timeout)
	defer cancel()

	resourceID := c.config.ResourceID
	if resourceID == "" {
		resourceID = defaultResourceID
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()

	if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
		log.Printf("[asr] request=%s connected with logid: %s", req.RequestID, logid)
	}

	// 阻塞读取无法感知 ctx，取消时直接关闭连接
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	compressed, err := gzipBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, newFullClientRequest(compressed).encode()); err != nil {
		return nil, fmt.Errorf("failed to send ASR request: %w", err)
	}

	// 并发发送音频，服务端提前返回错误时可以及时结束
	sendErrCh := make(chan error, 1)
	go func() {
		sendErrCh <- sendAudio(conn, audioData)
	}()

	result, err := c.receive(conn, req.RequestID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("asr cancelled: %w", ctx.Err())
		}
		select {
		case sendErr := <-sendErrCh:
			if sendErr != nil {
				return nil, fmt.Errorf("failed to send audio data: %w", sendErr)
			}
		default:
		}
		return nil, err
	}
	return result, nil
}

func (c *VolcengineASRClient) buildRequest(req *speech.TranscriptionRequest) *asrRequest {
	asrReq := &asrRequest{}
	asrReq.User.UID = req.RequestID

	asrReq.Audio.Format = string(speech.FormatWAV)
	asrReq.Audio.Codec = "raw"
	asrReq.Audio.Rate = 16000
	asrReq.Audio.Bits = 16
	asrReq.Audio.Channel = 1
	asrReq.Audio.Language = req.Language
	if asrReq.Audio.Language == "" {
		asrReq.Audio.Language = c.config.Language
	}

	asrReq.Request.ModelName = c.Model()
	asrReq.Request.EnableITN = true
	asrReq.Request.EnablePunc = true
	asrReq.Request.ResultType = "full"
	return asrReq
}

// sendAudio 将音频按200ms分包发送，序号从2开始（1为完整请求）
func sendAudio(conn *websocket.Conn, audioData []byte) error {
	sequence := int32(2)
	for i := 0; i < len(audioData); i += asrChunkSize {
		end := min(i+asrChunkSize, len(audioData))
		last := end >= len(audioData)

		chunk, err := gzipBytes(audioData[i:end])
		if err != nil {
			return fmt.Errorf("failed to compress audio chunk: %w", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, newAudioFrame(chunk, sequence, last).encode()); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
		sequence++
	}
	return nil
}

// receive 读取识别结果直到最后一包
func (c *VolcengineASRClient) receive(conn *websocket.Conn, requestID string) (*speech.TranscriptionResponse, error) {
	var (
		text     string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}

		msg, err := decodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR message: %w", err)
		}

		switch msg.kind {
		case serverError:
			payload, _ := msg.payloadBytes()
			return nil, fmt.Errorf("ASR error %d: %s", msg.errorCode, string(payload))

		case fullServerResponse:
			payload, err := msg.payloadBytes()
			if err != nil {
				return nil, fmt.Errorf("failed to decompress ASR payload: %w", err)
			}

			var serverResp asrServerMessage
			if err := json.Unmarshal(payload, &serverResp); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ASR response: %w", err)
			}
			if serverResp.Code != 0 && serverResp.Code != asrSuccessCode {
				return nil, fmt.Errorf("ASR API error %d: %s", serverResp.Code, serverResp.Message)
			}

			if candidate := serverResp.text(); candidate != "" {
				text = candidate
			}
			if serverResp.AudioInfo.Duration > 0 {
				duration = serverResp.AudioInfo.Duration
			}

			if msg.last() {
				if text == "" {
					log.Printf("[asr] empty transcript for request %s", requestID)
				}
				return &speech.TranscriptionResponse{
					RequestID: requestID,
					Text:      strings.TrimSpace(text),
					Duration:  duration,
					Provider:  c.Name(),
					CreatedAt: time.Now(),
				}, nil
			}
		}
	}
}

func (m *asrServerMessage) text() string {
	if m.Result.Text != "" {
		return m.Result.Text
	}
	parts := make([]string, 0, len(m.Result.Utterances))
	for _, u := range m.Result.Utterances {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, " ")
}
