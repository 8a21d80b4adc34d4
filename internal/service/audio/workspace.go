package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kieran/voicechat/internal/model/speech"
)

// Workspace 管理单个请求的临时文件。
// 所有分配出去的路径都会被记录，Close 时统一删除，不论文件是否真的创建过。
type Workspace struct {
	dir string
	id  string

	mu     sync.Mutex
	paths  []string
	closed bool
}

// NewWorkspace 确保目录存在并返回新的工作区
func NewWorkspace(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to prepare temp dir %s: %w", dir, err)
	}
	return &Workspace{dir: dir, id: uuid.NewString()}, nil
}

// ID 返回工作区标识，同时用于生成唯一文件名
func (w *Workspace) ID() string {
	return w.id
}

// Create 以独占方式创建 <stem>-<id><ext> 文件
func (w *Workspace) Create(stem string, format speech.Format) (*os.File, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s%s", stem, w.id, format.Ext()))
	if err := w.track(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return f, nil
}

// Derive 为 src 的转码结果预留路径：同名，换扩展名
func (w *Workspace) Derive(src string, format speech.Format) (string, error) {
	path := strings.TrimSuffix(src, filepath.Ext(src)) + format.Ext()
	if path == src {
		path = strings.TrimSuffix(src, filepath.Ext(src)) + "-converted" + format.Ext()
	}
	if err := w.track(path); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Workspace) track(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("workspace already closed")
	}
	w.paths = append(w.paths, path)
	return nil
}

// Close 删除所有记录的文件，文件不存在不算错误；重复调用无副作用
func (w *Workspace) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	paths := w.paths
	w.paths = nil
	w.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
