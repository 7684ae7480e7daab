package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileStore はダウンロードしたファイルをディスクに保存します
type FileStore struct {
	// now はファイル名が空のときの代替名に使います
	now func() time.Time
}

// NewFileStore は新しいファイルストアを作成します
func NewFileStore() *FileStore {
	return &FileStore{now: time.Now}
}

// Save はファイルを dir に保存し、実際に書き込んだパスを返します
// 同名ファイルがある場合は拡張子の前に _1, _2 ... を付けます
func (s *FileStore) Save(fileName string, data []byte, dir string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		fileName = fmt.Sprintf("attachment_%d", s.now().UnixMilli())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("フォルダ作成エラー: %w", err)
	}

	baseName, extension := splitExtension(fileName)

	// O_EXCL で作成し、並行して同名を保存しても上書きしない
	candidate := fileName
	for counter := 1; ; counter++ {
		path := filepath.Join(dir, candidate)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			candidate = baseName + "_" + strconv.Itoa(counter) + extension
			continue
		}
		if err != nil {
			return "", fmt.Errorf("ファイル作成エラー: %w", err)
		}

		if _, err := file.Write(data); err != nil {
			file.Close()
			return "", fmt.Errorf("ファイル書き込みエラー: %w", err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("ファイルクローズエラー: %w", err)
		}

		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return path, nil
	}
}

// splitExtension は最後のドットで名前と拡張子に分けます
// 先頭のドット（".env" など）は拡張子として扱いません
func splitExtension(fileName string) (string, string) {
	lastDot := strings.LastIndex(fileName, ".")
	if lastDot <= 0 {
		return fileName, ""
	}
	return fileName[:lastDot], fileName[lastDot:]
}
