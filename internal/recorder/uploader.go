package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kieran/voicechat/internal/model/chat"
)

const (
	uploadPath      = "/api/transcribe"
	uploadField     = "audio"
	defaultFilename = "recording.webm"
)

// UploadError is returned when the server answers with a non-2xx status.
type UploadError struct {
	Status  int
	Message string
	Detail  string
}

func (e *UploadError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Sender delivers a finished clip and returns the server's exchange.
type Sender interface {
	Upload(ctx context.Context, clip AudioClip) (chat.Exchange, error)
}

// Uploader posts clips to the transcription endpoint as multipart form data.
type Uploader struct {
	endpoint string
	client   *http.Client
}

// NewUploader builds an uploader for the server at baseURL. A nil client uses
// http.DefaultClient; no body size limit is applied.
func NewUploader(baseURL string, client *http.Client) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{
		endpoint: strings.TrimRight(baseURL, "/") + uploadPath,
		client:   client,
	}
}

func (u *Uploader) Upload(ctx context.Context, clip AudioClip) (chat.Exchange, error) {
	body, contentType, err := encodeClip(clip)
	if err != nil {
		return chat.Exchange{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return chat.Exchange{}, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return chat.Exchange{}, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return chat.Exchange{}, fmt.Errorf("failed to read server response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chat.Exchange{}, parseUploadError(resp.StatusCode, data)
	}

	var exchange chat.Exchange
	if err := json.Unmarshal(data, &exchange); err != nil {
		return chat.Exchange{}, fmt.Errorf("invalid server response: %w", err)
	}
	if err := exchange.Validate(); err != nil {
		return chat.Exchange{}, fmt.Errorf("invalid server response: %w", err)
	}
	return exchange, nil
}

func encodeClip(clip AudioClip) (*bytes.Buffer, string, error) {
	filename := clip.Filename
	if filename == "" {
		filename = defaultFilename
	}
	contentType := clip.ContentType
	if contentType == "" {
		contentType = "audio/webm"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// parseUploadError reads {message, error} when the body is JSON and falls
// back to the raw body otherwise.
func parseUploadError(status int, body []byte) *UploadError {
	uerr := &UploadError{Status: status, Message: http.StatusText(status)}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if msg := parsed.Get("message"); msg.Exists() && msg.String() != "" {
			uerr.Message = msg.String()
		}
		if detail := parsed.Get("error"); detail.Exists() {
			uerr.Detail = detail.String()
		}
		return uerr
	}
	uerr.Detail = strings.TrimSpace(string(body))
	return uerr
}
