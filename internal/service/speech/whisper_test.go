package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kieran/voicechat/internal/model/speech"
)

func TestWhisperTranscribe(t *testing.T) {
	var gotModel, gotFile string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotModel = r.FormValue("model")
		if _, header, err := r.FormFile("file"); err == nil {
			gotFile = header.Filename
		}
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, " hello there\n")
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "upload-1.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	transcriber, err := NewWhisperTranscriber(&speech.SpeechConfig{
		OpenAIKey:     "sk-test",
		OpenAIBaseURL: server.URL + "/v1",
	})
	if err != nil {
		t.Fatalf("NewWhisperTranscriber err: %v", err)
	}

	resp, err := transcriber.Transcribe(context.Background(), &speech.TranscriptionRequest{RequestID: "req-1", AudioPath: path})
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}

	if resp.Text != "hello there" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if gotModel != "whisper-1" {
		t.Fatalf("expected whisper-1, got %q", gotModel)
	}
	if gotFile != "upload-1.mp3" {
		t.Fatalf("unexpected filename: %q", gotFile)
	}
	if resp.Provider != "whisper" || resp.RequestID != "req-1" {
		t.Fatalf("unexpected response metadata: %+v", resp)
	}
}

func TestWhisperTranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "upload.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	transcriber, err := NewWhisperTranscriber(&speech.SpeechConfig{OpenAIKey: "bad", OpenAIBaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewWhisperTranscriber err: %v", err)
	}

	_, err = transcriber.Transcribe(context.Background(), &speech.TranscriptionRequest{AudioPath: path})
	if err == nil || !strings.Contains(err.Error(), "Incorrect API key") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestNewTranscriberRequiresCredentials(t *testing.T) {
	if _, err := NewTranscriber("whisper", &speech.SpeechConfig{}); !errors.Is(err, speech.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials without OpenAI key, got %v", err)
	}
	if _, err := NewTranscriber("volcengine", &speech.SpeechConfig{AppID: "app"}); !errors.Is(err, speech.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials without access token, got %v", err)
	}
	if _, err := NewTranscriber("smoke-signals", &speech.SpeechConfig{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
