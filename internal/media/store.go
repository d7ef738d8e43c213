// Package media は出品画像のバイト列を保存し、参照パスを返すストレージを提供する。
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store は画像を保存して安定した参照パスを返すストレージのインターフェース。
// 内容の検証は呼び出し側の責務で、ここではバイト列をそのまま保存する。
type Store interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
}

// extensions は受け付ける画像のContent-Typeと拡張子の対応。
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Extension はContent-Typeに対応する拡張子を返す。未対応の場合はfalse。
func Extension(contentType string) (string, bool) {
	ext, ok := extensions[contentType]
	return ext, ok
}

// ObjectName は保存先のファイル名を "image-<unix ms>-<uuid>.<ext>" の形式で生成する。
func ObjectName(contentType string, now time.Time) (string, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	return fmt.Sprintf("image-%d-%s.%s", now.UnixMilli(), uuid.NewString(), ext), nil
}
