package speech

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameEncodeDecodeAudio(t *testing.T) {
	encoded := newAudioFrame([]byte("chunk"), 3, false).encode()

	decoded, err := decodeFrame(encoded)
	if err != nil {
		t.Fatalf("decodeFrame err: %v", err)
	}
	if decoded.kind != audioOnlyRequest || decoded.sequence != 3 || decoded.last() {
		t.Fatalf("unexpected frame: %+v", decoded)
	}
	if !bytes.Equal(decoded.payload, []byte("chunk")) {
		t.Fatalf("unexpected payload: %q", decoded.payload)
	}
}

func TestLastAudioFrameUsesNegativeSequence(t *testing.T) {
	decoded, err := decodeFrame(newAudioFrame([]byte("tail"), 7, true).encode())
	if err != nil {
		t.Fatalf("decodeFrame err: %v", err)
	}
	if !decoded.last() || decoded.sequence != -7 {
		t.Fatalf("expected last frame with sequence -7, got %+v", decoded)
	}
}

func TestDecodeServerErrorFrame(t *testing.T) {
	f := &frame{kind: serverError, errorCode: 45000001, payload: []byte("bad audio")}

	decoded, err := decodeFrame(f.encode())
	if err != nil {
		t.Fatalf("decodeFrame err: %v", err)
	}
	if decoded.errorCode != 45000001 || string(decoded.payload) != "bad audio" {
		t.Fatalf("unexpected error frame: %+v", decoded)
	}
}

func TestDecodeTruncatedFrame(t *testing.T) {
	encoded := newFullClientRequest([]byte(`{"a":1}`)).encode()

	for _, n := range []int{2, 6, len(encoded) - 1} {
		if _, err := decodeFrame(encoded[:n]); !errors.Is(err, errShortFrame) {
			t.Fatalf("len %d: expected errShortFrame, got %v", n, err)
		}
	}
}

func TestPayloadBytesGunzips(t *testing.T) {
	compressed, err := gzipBytes([]byte(`{"code":0}`))
	if err != nil {
		t.Fatalf("gzip err: %v", err)
	}
	f := &frame{kind: fullServerResponse, compression: compressionGzip, payload: compressed}

	payload, err := f.payloadBytes()
	if err != nil {
		t.Fatalf("payloadBytes err: %v", err)
	}
	if string(payload) != `{"code":0}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}
