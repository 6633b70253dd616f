package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"strings"

	_ "golang.org/x/image/bmp"  // 注册 BMP 解码器
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 注册 WebP 解码器

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
)

var (
	// ErrEmptyImage 表示解码出的图像没有像素
	ErrEmptyImage = errors.New("image has no pixels")
	// ErrUnknownSampler 表示配置了不支持的采样器名称
	ErrUnknownSampler = errors.New("unknown sampler")
	// ErrTooManyPixels 表示图像头声明的像素数超出预算
	ErrTooManyPixels = errors.New("image has too many pixels")
)

const (
	// DefaultSampler 是导入时默认使用的重采样方式
	DefaultSampler = "approx-bilinear"

	// DefaultMaxImagePixels 是导入图像解码后允许的最大像素数 (4096 x 4096)
	DefaultMaxImagePixels int64 = 1 << 24
)

var samplers = map[string]draw.Interpolator{
	"nearest":         draw.NearestNeighbor,
	"approx-bilinear": draw.ApproxBiLinear,
	"bilinear":        draw.BiLinear,
	"catmull-rom":     draw.CatmullRom,
}

// ParseSampler 按名称返回重采样器，空字符串返回默认值
func ParseSampler(name string) (draw.Interpolator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultSampler
	}
	s, ok := samplers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSampler, name)
	}
	return s, nil
}

// Decode 解码任意已注册格式的图像，返回图像和格式名。
// 解码器会按图像头声明的尺寸一次性分配像素缓冲区，所以先用 DecodeConfig 检查
// 像素数，超过 maxPixels (非正时使用 DefaultMaxImagePixels) 直接返回 ErrTooManyPixels。
func Decode(data []byte, maxPixels int64) (image.Image, string, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("render: decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, ErrEmptyImage
	}
	if int64(cfg.Width) > maxPixels/int64(cfg.Height) {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds %d", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("render: decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// Downsample 把 src 重采样到恰好 width x height 的离屏缓冲区，每个单元格一个像素，
// 然后逐像素读回 R/G/B (alpha 被丢弃)。
func Downsample(src image.Image, width, height int, sampler draw.Interpolator) ([][]domain.Color, error) {
	if src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("render: invalid target size %dx%d", width, height)
	}
	if sampler == nil {
		sampler = draw.ApproxBiLinear
	}

	// NRGBA 保存未预乘的通道值，半透明像素的颜色不会被 alpha 压暗
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	sampler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	rows := make([][]domain.Color, height)
	for y := 0; y < height; y++ {
		row := make([]domain.Color, width)
		for x := 0; x < width; x++ {
			off := dst.PixOffset(x, y)
			row[x] = domain.Color{R: dst.Pix[off], G: dst.Pix[off+1], B: dst.Pix[off+2]}
		}
		rows[y] = row
	}
	return rows, nil
}
