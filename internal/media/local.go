package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore はローカルディスクのディレクトリに画像を保存する。
type LocalStore struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

// NewLocalStore はLocalStoreを生成する。保存先ディレクトリが無ければ作成する。
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalStore{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		now:       time.Now,
	}, nil
}

// Save は画像をファイルに書き込み、"/uploads/<name>" 形式の参照パスを返す。
func (s *LocalStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := ObjectName(contentType, s.now())
	if err != nil {
		return "", err
	}

	// 既存ファイルは上書きしない
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close media file: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}

var _ Store = (*LocalStore)(nil)
