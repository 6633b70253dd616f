package render_test

import (
	"image/color"
	"testing"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/abdulaziz-backend/pixelpainter/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gridline = color.RGBA{0x33, 0x33, 0x33, 0xff}

func TestRender_SurfaceSize(t *testing.T) {
	e := domain.NewEditor(7, 3, 12)
	img := render.Render(e.State())
	assert.Equal(t, 7*12, img.Bounds().Dx())
	assert.Equal(t, 3*12, img.Bounds().Dy())
}

func TestRender_FillsCellsThenGridlines(t *testing.T) {
	e := domain.NewEditor(3, 2, 10)
	e.SetColor(domain.Color{R: 200, G: 10, B: 30})
	e.PaintCell(1, 1)
	img := render.Render(e.State())

	// 单元格中心是填充色
	assert.Equal(t, color.RGBA{200, 10, 30, 0xff}, img.RGBAAt(15, 15))
	assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, img.RGBAAt(5, 5))

	// 网格线覆盖在填充之上，包括被涂色的单元格的边界
	for _, x := range []int{0, 10, 20, 29} {
		for _, y := range []int{3, 15} {
			assert.Equal(t, gridline, img.RGBAAt(x, y), "vertical line at x=%d y=%d", x, y)
		}
	}
	for _, y := range []int{0, 10, 19} {
		assert.Equal(t, gridline, img.RGBAAt(15, y), "horizontal line at y=%d", y)
	}
}

func TestRender_NoTransparentPixels(t *testing.T) {
	e := domain.NewEditor(4, 4, 5)
	img := render.Render(e.State())
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			require.Equal(t, uint8(0xff), img.RGBAAt(x, y).A)
		}
	}
}

func TestSurface_RerendersOnVersionChange(t *testing.T) {
	e := domain.NewEditor(2, 2, 10)
	var s render.Surface

	first := s.Sync(e.State())
	assert.Same(t, first, s.Sync(e.State()), "版本未变化时应复用缓存")

	e.SetCellSize(20)
	second := s.Sync(e.State())
	assert.NotSame(t, first, second)
	assert.Equal(t, 40, second.Bounds().Dx())
	assert.Equal(t, 20, first.Bounds().Dx(), "旧画布不应被修改")
}

func TestRender_MaxGridStaysWithinSurfaceBudget(t *testing.T) {
	e := domain.NewEditor(domain.DefaultMaxDimension, domain.DefaultMaxDimension, domain.MaxCellSize)
	img := render.Render(e.State())

	b := img.Bounds()
	assert.Equal(t, 4096, b.Dx())
	assert.Equal(t, 4096, b.Dy())
	assert.LessOrEqual(t, int64(b.Dx())*int64(b.Dy()), domain.DefaultMaxSurfacePixels)
	assert.Equal(t, gridline, img.RGBAAt(b.Dx()-1, b.Dy()-1))
}
