package domain_test

import (
	"errors"
	"testing"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = domain.Color{R: 255}

// cells 把快照展开成 [row][col] 颜色矩阵，便于整体比较
func cells(s domain.EditorState) [][]domain.Color {
	out := make([][]domain.Color, s.Height)
	for row := range out {
		out[row] = make([]domain.Color, s.Width)
		for col := range out[row] {
			out[row][col], _ = s.Grid.At(col, row)
		}
	}
	return out
}

func assertAll(t *testing.T, s domain.EditorState, want domain.Color) {
	t.Helper()
	for row, line := range cells(s) {
		for col, c := range line {
			require.Equalf(t, want, c, "cell (%d,%d)", col, row)
		}
	}
}

func TestNewEditor_Defaults(t *testing.T) {
	e := domain.NewEditor(domain.DefaultWidth, domain.DefaultHeight, domain.DefaultCellSize)
	s := e.State()

	assert.Equal(t, 32, s.Width)
	assert.Equal(t, 32, s.Height)
	assert.Equal(t, 20, s.CellSize)
	assert.Equal(t, domain.DefaultPaintColor, s.Tool.Color)
	assert.False(t, s.Tool.Erasing)
	assert.False(t, s.Tool.Painting)
	assertAll(t, s, domain.EraseColor)
}

func TestNewEditor_ClampsInputs(t *testing.T) {
	e := domain.NewEditor(0, 10000, 1, domain.WithMaxDimension(64))
	assert.Equal(t, 1, e.Width())
	assert.Equal(t, 64, e.Height())
	assert.Equal(t, domain.MinCellSize, e.CellSize())

	e = domain.NewEditor(3, 3, 99)
	assert.Equal(t, domain.MaxCellSize, e.CellSize())
}

func TestEditor_PaintSetsOnlyTargetCell(t *testing.T) {
	e := domain.NewEditor(5, 4, 10)
	e.SetColor(red)
	before := cells(e.State())

	change, ok := e.PaintCell(3, 2)
	require.True(t, ok)
	assert.Equal(t, domain.ChangeCell, change.Kind)
	assert.Equal(t, 3, change.Col)
	assert.Equal(t, 2, change.Row)
	assert.Equal(t, red, change.Color)

	after := cells(e.State())
	for row := range after {
		for col := range after[row] {
			if col == 3 && row == 2 {
				assert.Equal(t, red, after[row][col])
				continue
			}
			assert.Equal(t, before[row][col], after[row][col])
		}
	}
}

func TestEditor_EraseIgnoresPaintColor(t *testing.T) {
	e := domain.NewEditor(3, 3, 10)
	e.SetColor(red)
	e.PaintCell(1, 1)

	e.SetErasing(true)
	e.SetColor(domain.Color{G: 255})
	_, ok := e.PaintCell(1, 1)
	require.True(t, ok)

	c, _ := e.State().Grid.At(1, 1)
	assert.Equal(t, domain.EraseColor, c)
}

func TestEditor_OutOfBoundsPointerIgnored(t *testing.T) {
	e := domain.NewEditor(4, 4, 10)
	e.SetColor(red)
	before := e.State()

	for _, p := range [][2]float64{{-1, 5}, {5, -0.5}, {40, 5}, {5, 40}, {1000, 1000}} {
		_, ok := e.PointerDown(p[0], p[1])
		assert.False(t, ok, "%v", p)
	}
	after := e.State()
	assert.Equal(t, cells(before), cells(after))
	assert.Equal(t, before.Version, after.Version)
}

func TestEditor_CellAtFloorsCoordinates(t *testing.T) {
	e := domain.NewEditor(4, 4, 10)

	col, row, ok := e.CellAt(0, 0)
	require.True(t, ok)
	assert.Equal(t, [2]int{0, 0}, [2]int{col, row})

	col, row, ok = e.CellAt(19.9, 30)
	require.True(t, ok)
	assert.Equal(t, [2]int{1, 3}, [2]int{col, row})

	_, _, ok = e.CellAt(39.99, 40)
	assert.False(t, ok)
	_, _, ok = e.CellAt(-0.01, 0)
	assert.False(t, ok, "负坐标向下取整后为 -1，应被忽略")
}

func TestEditor_PointerStateMachine(t *testing.T) {
	e := domain.NewEditor(4, 4, 10)
	e.SetColor(red)

	// 未按下时移动不编辑
	_, ok := e.PointerMove(5, 5)
	assert.False(t, ok)

	_, ok = e.PointerDown(5, 5)
	require.True(t, ok)
	assert.True(t, e.Tool().Painting)

	_, ok = e.PointerMove(15, 5)
	assert.True(t, ok)

	e.PointerLeave()
	assert.False(t, e.Tool().Painting)
	_, ok = e.PointerMove(25, 5)
	assert.False(t, ok)

	e.PointerDown(35, 35)
	e.PointerUp()
	_, ok = e.PointerMove(35, 25)
	assert.False(t, ok)

	s := e.State()
	for _, cell := range [][2]int{{0, 0}, {1, 0}, {3, 3}} {
		c, _ := s.Grid.At(cell[0], cell[1])
		assert.Equal(t, red, c, "%v", cell)
	}
	c, _ := s.Grid.At(2, 0)
	assert.Equal(t, domain.EraseColor, c)
}

func TestEditor_HandlePointerValidates(t *testing.T) {
	e := domain.NewEditor(2, 2, 10)
	_, _, err := e.HandlePointer(domain.PointerEvent{Type: "click"})
	assert.Error(t, err)

	change, ok, err := e.HandlePointer(domain.PointerEvent{Type: domain.PointerDown, X: 1, Y: 1})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.ChangeCell, change.Kind)

	_, _, err = e.HandlePointer(domain.PointerEvent{Type: domain.PointerUp})
	assert.NoError(t, err)
}

func TestEditor_FillAllIgnoresEraseMode(t *testing.T) {
	e := domain.NewEditor(6, 5, 10)
	e.SetColor(domain.Color{B: 255})
	e.PaintCell(0, 0)
	e.SetColor(red)
	e.SetErasing(true)

	change := e.FillAll()
	assert.Equal(t, domain.ChangeGrid, change.Kind)
	assertAll(t, e.State(), red)
}

func TestEditor_ResizeResetsGrid(t *testing.T) {
	e := domain.NewEditor(5, 5, 10)
	e.SetColor(red)
	e.FillAll()
	gen := e.Generation()

	_, ok := e.Resize(10, 10)
	require.True(t, ok)
	s := e.State()
	assert.Equal(t, 10, s.Width)
	assert.Equal(t, 10, s.Height)
	assert.Equal(t, gen+1, s.Generation)
	assertAll(t, s, domain.EraseColor)
}

func TestEditor_ResizeSameDimensionsIsNoop(t *testing.T) {
	e := domain.NewEditor(5, 5, 10)
	e.PaintCell(1, 1)
	_, ok := e.Resize(5, 5)
	assert.False(t, ok)
	c, _ := e.State().Grid.At(1, 1)
	assert.Equal(t, domain.DefaultPaintColor, c)
}

func TestEditor_ZoomKeepsColors(t *testing.T) {
	e := domain.NewEditor(8, 8, 20)
	e.SetColor(red)
	e.PaintCell(2, 3)
	e.PaintCell(7, 7)
	before := cells(e.State())

	for _, size := range []int{5, 50, 1, 100, 33} {
		e.SetCellSize(size)
		assert.Equal(t, before, cells(e.State()))
	}
	assert.Equal(t, 33, e.CellSize())
}

func TestEditor_ApplyImport(t *testing.T) {
	e := domain.NewEditor(2, 1, 10)
	gen := e.Generation()
	rows := [][]domain.Color{{red, domain.Color{G: 9}}}

	change, err := e.ApplyImport(gen, rows)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeGrid, change.Kind)
	assert.Equal(t, rows, cells(e.State()))
}

func TestEditor_ApplyImportRejectsStaleGeneration(t *testing.T) {
	e := domain.NewEditor(2, 2, 10)
	gen := e.Generation()
	e.Resize(3, 3)

	rows := [][]domain.Color{{red, red, red}, {red, red, red}, {red, red, red}}
	_, err := e.ApplyImport(gen, rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStaleImport))
	assertAll(t, e.State(), domain.EraseColor)
}

func TestParseDimension(t *testing.T) {
	cases := map[string]int{
		"32":    32,
		" 16 ":  16,
		"12abc": 12,
		"3.9":   3,
		"+4":    4,
		"":      1,
		"abc":   1,
		"0":     1,
		"-5":    1,
	}
	for in, want := range cases {
		assert.Equal(t, want, domain.ParseDimension(in), in)
	}
}

func TestEditor_SurfaceBudgetCapsCellSize(t *testing.T) {
	e := domain.NewEditor(256, 256, domain.MaxCellSize)
	assert.Equal(t, 16, e.CellSize())
	assert.Equal(t, 16, e.MaxCellSize())

	_, ok := e.SetCellSize(40)
	assert.False(t, ok)
	assert.Equal(t, 16, e.CellSize())

	small := domain.NewEditor(32, 32, domain.MaxCellSize)
	assert.Equal(t, domain.MaxCellSize, small.CellSize())
}

func TestEditor_ResizeShrinksCellSizeToBudget(t *testing.T) {
	e := domain.NewEditor(32, 32, domain.MaxCellSize)

	_, ok := e.Resize(256, 256)
	require.True(t, ok)
	s := e.State()
	assert.Equal(t, 16, s.CellSize)
	assert.LessOrEqual(t, int64(s.Width*s.CellSize)*int64(s.Height*s.CellSize), domain.DefaultMaxSurfacePixels)

	// 缩小网格不会自动放大缩放
	e.Resize(32, 32)
	assert.Equal(t, 16, e.CellSize())
	_, ok = e.SetCellSize(domain.MaxCellSize)
	assert.True(t, ok)
}

func TestEditor_SurfaceBudgetLimitsDimension(t *testing.T) {
	// 100*100 像素的预算在最小缩放下只能容纳 20x20
	e := domain.NewEditor(500, 30, 20,
		domain.WithMaxDimension(1000),
		domain.WithMaxSurfacePixels(100*100),
	)
	assert.Equal(t, 20, e.Width())
	assert.Equal(t, 20, e.Height())
	assert.Equal(t, domain.MinCellSize, e.CellSize())

	e = domain.NewEditor(10, 10, 20, domain.WithMaxSurfacePixels(100*100))
	assert.Equal(t, 10, e.CellSize())
}
