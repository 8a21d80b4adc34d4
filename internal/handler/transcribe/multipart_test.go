package transcribe

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestCloseWatcherAcrossReads(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		closed bool
	}{
		{"closed", "--B\r\n\r\nabc\r\n--B--\r\n", true},
		{"closed without crlf", "--B\r\n\r\nabc\r\n--B--", true},
		{"open", "--B\r\n\r\nabc\r\n--B\r\n", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newCloseWatcher(iotest.OneByteReader(strings.NewReader(tc.body)), "B")
			if _, err := io.ReadAll(w); err != nil {
				t.Fatalf("read: %v", err)
			}
			if w.Closed() != tc.closed {
				t.Fatalf("expected closed=%v", tc.closed)
			}
		})
	}
}
