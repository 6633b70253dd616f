// Package render 把编辑器状态绘制成位图，并负责 PNG 导出和图片导入。
package render

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
)

// Render 按状态重新绘制整个画布：
// 画布尺寸为 width*s x height*s，先填充所有单元格，再在上面描网格线。
func Render(state domain.EditorState) *image.RGBA {
	s := state.CellSize
	w, h := state.Width*s, state.Height*s
	// 新分配的 RGBA 即为清空后的 (全透明) 画布
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for row := 0; row < state.Height; row++ {
		for col := 0; col < state.Width; col++ {
			c, _ := state.Grid.At(col, row)
			rect := image.Rect(col*s, row*s, col*s+s, row*s+s)
			draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}

	// 网格线必须在所有填充之后绘制，保证始终可见
	line := image.NewUniform(domain.GridlineColor)
	for i := 0; i <= state.Width; i++ {
		x := lineOffset(i*s, w)
		draw.Draw(img, image.Rect(x, 0, x+1, h), line, image.Point{}, draw.Src)
	}
	for i := 0; i <= state.Height; i++ {
		y := lineOffset(i*s, h)
		draw.Draw(img, image.Rect(0, y, w, y+1), line, image.Point{}, draw.Src)
	}
	return img
}

// lineOffset 把最后一条边界线收进画布内部
func lineOffset(pos, extent int) int {
	if pos >= extent {
		return extent - 1
	}
	return pos
}

// Surface 缓存最近一次渲染结果，编辑器版本变化时才重新绘制。
// 返回的图像在之后不会再被修改，可以在其他 goroutine 中编码。
type Surface struct {
	img     *image.RGBA
	version uint64
}

// Sync 返回与 state 对应的画布
func (s *Surface) Sync(state domain.EditorState) *image.RGBA {
	if s.img != nil && s.version == state.Version {
		return s.img
	}
	s.img = Render(state)
	s.version = state.Version
	return s.img
}
