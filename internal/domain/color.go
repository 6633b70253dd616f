package domain

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor 表示无法解析的颜色字符串
var ErrInvalidColor = errors.New("invalid color value")

// Color 是单元格的颜色，只保存 RGB 三个通道。
// 透明度在模型中不存在：导入时直接丢弃 alpha。
type Color struct {
	R, G, B uint8
}

var (
	// EraseColor 是擦除模式写入的颜色，也是新网格的默认颜色
	EraseColor = Color{0, 0, 0}
	// DefaultPaintColor 是新会话的默认画笔颜色
	DefaultPaintColor = Color{0xff, 0xff, 0xff}
	// GridlineColor 是网格线颜色 (#333333)
	GridlineColor = Color{0x33, 0x33, 0x33}
)

// ParseColor 解析 "#rrggbb"、"#rgb" 或 "rgb(r,g,b)" 格式的颜色。
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		return parseRGBFunc(s)
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	// go-colorful 同时支持 3 位和 6 位十六进制格式
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
	}
	r, g, b := c.RGB255()
	return Color{r, g, b}, nil
}

// MustParseColor 与 ParseColor 相同，解析失败时 panic。仅用于常量和测试。
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// parseRGBFunc 解析 "rgb(r,g,b)"，导入图像时旧客户端会发送这种格式
func parseRGBFunc(s string) (Color, error) {
	parts := strings.Split(s[len("rgb("):len(s)-1], ",")
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	var ch [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		ch[i] = uint8(v)
	}
	return Color{ch[0], ch[1], ch[2]}, nil
}

// Hex 返回小写的 "#rrggbb" 形式
func (c Color) Hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

func (c Color) String() string { return c.Hex() }

// RGBA 实现 color.Color 接口，颜色总是完全不透明的。
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// MarshalText 让 Color 在 JSON 中以十六进制字符串出现
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
