// Package renderer 定义最终合成的契约：把底图与文字图层输出为原始分辨率的 PNG。
package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/webp"

	"github.com/ByLCY/thumbsmith/scene"
)

// ExportFileName 为导出文件的下载名。
const ExportFileName = "thumbnail_final.png"

// ErrInvalidScale 表示显示比例不是有限正数。
var ErrInvalidScale = errors.New("renderer: 显示比例必须为有限正数")

// Renderer 将底图与图层合成为最终图片。
// Export 要么返回完整的 PNG 字节，要么返回错误，不会产生部分输出。
type Renderer interface {
	Export(base []byte, elements []scene.TextElement, displayScale float64) ([]byte, error)
}

// Previewer renders the display-size preview with the selection overlay.
type Previewer interface {
	Preview(base []byte, elements []scene.TextElement, displayWidth int, activeID string) ([]byte, error)
}

// DecodeError wraps a failure to decode the base image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("无法解码底图: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode 解码底图（png、jpeg、gif、webp），失败时返回 *DecodeError。
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Err: errors.New("底图为空")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", &DecodeError{Err: fmt.Errorf("底图尺寸无效: %dx%d", b.Dx(), b.Dy())}
	}
	return img, format, nil
}

// ValidScale reports whether s can be used as a display scale.
func ValidScale(s float64) bool {
	return s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}

// DisplayScale 返回原图宽度与显示宽度之比。
func DisplayScale(nativeWidth, displayWidth int) (float64, error) {
	if nativeWidth <= 0 || displayWidth <= 0 {
		return 0, ErrInvalidScale
	}
	return float64(nativeWidth) / float64(displayWidth), nil
}
