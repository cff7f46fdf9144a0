// Package pidfile はPIDファイルの書き出しと削除を提供する。
package pidfile

import (
	"fmt"
	"os"
)

// Write は自プロセスのPIDをpathへ書き出す。
func Write(path string) error {
	if path == "" {
		return nil
	}
	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Remove はPIDファイルを削除する。存在しない場合は何もしない。
func Remove(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
