package transcribe

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

var errNotMultipart = errors.New("request Content-Type isn't multipart/form-data")

// closeWatcher 记录请求体里是否出现过结束分隔符 --boundary--。
// multipart.Reader 在正常结束和头部被截断时都会返回裸 io.EOF，需要靠它区分。
type closeWatcher struct {
	r      io.Reader
	marker []byte
	tail   []byte
	seen   bool
}

func newCloseWatcher(r io.Reader, boundary string) *closeWatcher {
	return &closeWatcher{r: r, marker: []byte("--" + boundary + "--")}
}

func (w *closeWatcher) Read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	if n > 0 && !w.seen {
		// 保留上次读取末尾的若干字节，分隔符可能跨越两次读取
		window := make([]byte, 0, len(w.tail)+n)
		window = append(window, w.tail...)
		window = append(window, p[:n]...)
		if bytes.Contains(window, w.marker) {
			w.seen = true
		}
		keep := len(w.marker) - 1
		if len(window) > keep {
			window = window[len(window)-keep:]
		}
		w.tail = window
	}
	return n, err
}

// Closed reports whether the closing delimiter has been read.
func (w *closeWatcher) Closed() bool { return w.seen }

// openMultipart 返回流式读取器；非 multipart 请求视为解析失败
func openMultipart(r *http.Request) (*multipart.Reader, *closeWatcher, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, nil, errNotMultipart
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, nil, errors.New("no multipart boundary param in Content-Type")
	}

	watcher := newCloseWatcher(r.Body, boundary)
	return multipart.NewReader(watcher, boundary), watcher, nil
}
