package forward

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DetailWriter はアカウンティングディレクトリのdetailファイルへ
// JSON Lines形式でレコードを追記する。
type DetailWriter struct {
	path string

	mu sync.Mutex
}

// NewDetailWriter は新しいDetailWriterを生成する。
// dirが存在しない場合は作成する。
func NewDetailWriter(dir string) (*DetailWriter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create accounting directory: %w", err)
	}
	return &DetailWriter{path: filepath.Join(dir, "detail")}, nil
}

// Write はレコードを1行追記する。
func (w *DetailWriter) Write(_ context.Context, rec *Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open detail file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append detail record: %w", err)
	}
	return nil
}

// Path はdetailファイルのパスを返す。
func (w *DetailWriter) Path() string {
	return w.path
}
