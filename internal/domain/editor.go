package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MinCellSize     = 5
	MaxCellSize     = 50
	DefaultCellSize = 20

	DefaultWidth  = 32
	DefaultHeight = 32

	// DefaultMaxDimension 限制单边的单元格数
	DefaultMaxDimension = 256

	// DefaultMaxSurfacePixels 是渲染面 (width*s x height*s) 的像素上限，RGBA 下约 64MB。
	// 网格较大时可用的最大缩放会相应降低。
	DefaultMaxSurfacePixels int64 = 1 << 24
)

// ErrStaleImport 表示导入结果基于已被重建的网格，不能再应用
var ErrStaleImport = errors.New("import result is stale")

// ToolState 是当前工具状态
type ToolState struct {
	Color    Color // 当前画笔颜色
	Erasing  bool  // 擦除模式，与绘制互斥
	Painting bool  // 指针按键是否处于按下状态
}

// EditorState 是编辑器在某个版本上的不可变快照
type EditorState struct {
	Width      int
	Height     int
	CellSize   int
	Tool       ToolState
	Version    uint64
	Generation uint64
	Grid       GridSnapshot
}

// Editor 持有网格、工具状态和显示配置，是所有编辑操作的唯一入口。
// Editor 不是并发安全的，应由单个事件循环独占。
type Editor struct {
	grid         *Grid
	tool         ToolState
	cellSize         int
	maxDimension     int
	maxSurfacePixels int64

	version    uint64 // 每次可观察变更递增
	generation uint64 // 每次重建网格递增
}

// EditorOption 用于定制 NewEditor
type EditorOption func(*Editor)

// WithMaxDimension 设置宽高的上限
func WithMaxDimension(n int) EditorOption {
	return func(e *Editor) {
		if n > 0 {
			e.maxDimension = n
		}
	}
}

// WithMaxSurfacePixels 设置渲染面的像素上限
func WithMaxSurfacePixels(n int64) EditorOption {
	return func(e *Editor) {
		if n > 0 {
			e.maxSurfacePixels = n
		}
	}
}

// WithPaintColor 设置初始画笔颜色
func WithPaintColor(c Color) EditorOption {
	return func(e *Editor) { e.tool.Color = c }
}

// NewEditor 创建编辑器。尺寸会被修正到 [1, maxDimension]，单元格大小被限制在 [5, 50]，
// 并且不会让渲染面超过 maxSurfacePixels。
func NewEditor(width, height, cellSize int, opts ...EditorOption) *Editor {
	e := &Editor{
		tool:             ToolState{Color: DefaultPaintColor},
		maxDimension:     DefaultMaxDimension,
		maxSurfacePixels: DefaultMaxSurfacePixels,
	}
	for _, opt := range opts {
		opt(e)
	}
	// 最小缩放下的正方形网格也必须放得进像素预算
	if limit := int(isqrt(e.maxSurfacePixels) / MinCellSize); limit < e.maxDimension {
		e.maxDimension = max(limit, 1)
	}
	e.grid = NewGrid(CoerceDimension(width, e.maxDimension), CoerceDimension(height, e.maxDimension))
	e.cellSize = e.clampCellSize(cellSize)
	return e
}

// MaxCellSize 返回当前尺寸下允许的最大单元格大小
func (e *Editor) MaxCellSize() int {
	return maxCellSizeFor(e.grid.Width(), e.grid.Height(), e.maxSurfacePixels)
}

func (e *Editor) clampCellSize(n int) int {
	n = ClampCellSize(n)
	if limit := e.MaxCellSize(); n > limit {
		return limit
	}
	return n
}

// maxCellSizeFor 求满足 width*height*s*s <= budget 的最大 s，结果落在 [MinCellSize, MaxCellSize]
func maxCellSizeFor(width, height int, budget int64) int {
	cells := int64(width) * int64(height)
	if cells <= 0 || budget <= 0 {
		return MaxCellSize
	}
	s := isqrt(budget / cells)
	if s > MaxCellSize {
		return MaxCellSize
	}
	if s < MinCellSize {
		return MinCellSize
	}
	return int(s)
}

// isqrt 返回 floor(sqrt(n))
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// ClampCellSize 把单元格大小限制在 [MinCellSize, MaxCellSize]
func ClampCellSize(n int) int {
	if n < MinCellSize {
		return MinCellSize
	}
	if n > MaxCellSize {
		return MaxCellSize
	}
	return n
}

// CoerceDimension 把宽或高修正到 [1, max]
func CoerceDimension(n, max int) int {
	if n < 1 {
		return 1
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// ParseDimension 按输入框的宽松规则解析尺寸：
// 取开头的整数部分，解析不出或小于 1 时返回 1。
func ParseDimension(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}
	n := 0
	for _, ch := range s[digits:end] {
		n = n*10 + int(ch-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32
			break
		}
	}
	if s[0] == '-' || n < 1 {
		return 1
	}
	return n
}

func (e *Editor) Width() int         { return e.grid.Width() }
func (e *Editor) Height() int        { return e.grid.Height() }
func (e *Editor) CellSize() int      { return e.cellSize }
func (e *Editor) Tool() ToolState    { return e.tool }
func (e *Editor) Version() uint64    { return e.version }
func (e *Editor) Generation() uint64 { return e.generation }

// State 返回当前状态快照
func (e *Editor) State() EditorState {
	return EditorState{
		Width:      e.grid.Width(),
		Height:     e.grid.Height(),
		CellSize:   e.cellSize,
		Tool:       e.tool,
		Version:    e.version,
		Generation: e.generation,
		Grid:       e.grid.Snapshot(),
	}
}

// CellAt 把画布像素坐标映射到单元格：(floor(x/s), floor(y/s))。
// 结果不在网格内时 ok 为 false。
func (e *Editor) CellAt(x, y float64) (col, row int, ok bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, false
	}
	s := float64(e.cellSize)
	fc, fr := math.Floor(x/s), math.Floor(y/s)
	if fc < 0 || fr < 0 || fc >= float64(e.grid.Width()) || fr >= float64(e.grid.Height()) {
		return 0, 0, false
	}
	return int(fc), int(fr), true
}

// PointerDown 进入绘制状态，并在按下的位置执行一次编辑
func (e *Editor) PointerDown(x, y float64) (Change, bool) {
	e.tool.Painting = true
	return e.PointerMove(x, y)
}

// PointerMove 仅在绘制状态下编辑指针所在的单元格
func (e *Editor) PointerMove(x, y float64) (Change, bool) {
	if !e.tool.Painting {
		return Change{}, false
	}
	col, row, ok := e.CellAt(x, y)
	if !ok {
		return Change{}, false
	}
	return e.PaintCell(col, row)
}

// PointerUp 结束绘制
func (e *Editor) PointerUp() { e.tool.Painting = false }

// PointerLeave 指针离开画布时同样结束绘制
func (e *Editor) PointerLeave() { e.tool.Painting = false }

// HandlePointer 按事件类型分派指针事件
func (e *Editor) HandlePointer(ev PointerEvent) (Change, bool, error) {
	if err := ev.Validate(); err != nil {
		return Change{}, false, err
	}
	switch ev.Type {
	case PointerDown:
		c, ok := e.PointerDown(ev.X, ev.Y)
		return c, ok, nil
	case PointerMove:
		c, ok := e.PointerMove(ev.X, ev.Y)
		return c, ok, nil
	case PointerUp:
		e.PointerUp()
	case PointerLeave:
		e.PointerLeave()
	}
	return Change{}, false, nil
}

// PaintCell 用当前画笔颜色 (擦除模式下为 EraseColor) 写入一个单元格。
// 越界坐标被静默忽略。
func (e *Editor) PaintCell(col, row int) (Change, bool) {
	c := e.tool.Color
	if e.tool.Erasing {
		c = EraseColor
	}
	if !e.grid.Set(col, row, c) {
		return Change{}, false
	}
	e.version++
	return Change{Kind: ChangeCell, Col: col, Row: row, Color: c, Version: e.version}, true
}

// FillAll 把整个网格填充为当前画笔颜色，不受擦除模式影响
func (e *Editor) FillAll() Change {
	e.grid.Fill(e.tool.Color)
	e.version++
	return Change{Kind: ChangeGrid, Version: e.version}
}

// SetColor 设置画笔颜色
func (e *Editor) SetColor(c Color) (Change, bool) {
	if e.tool.Color == c {
		return Change{}, false
	}
	e.tool.Color = c
	return e.toolChanged(), true
}

// SetErasing 设置擦除模式
func (e *Editor) SetErasing(erasing bool) (Change, bool) {
	if e.tool.Erasing == erasing {
		return Change{}, false
	}
	e.tool.Erasing = erasing
	return e.toolChanged(), true
}

// ToggleErase 切换擦除模式
func (e *Editor) ToggleErase() Change {
	e.tool.Erasing = !e.tool.Erasing
	return e.toolChanged()
}

func (e *Editor) toolChanged() Change {
	e.version++
	return Change{Kind: ChangeTool, Version: e.version}
}

// SetCellSize 修改缩放级别。只影响渲染尺寸，不触碰任何单元格颜色。
func (e *Editor) SetCellSize(n int) (Change, bool) {
	n = e.clampCellSize(n)
	if n == e.cellSize {
		return Change{}, false
	}
	e.cellSize = n
	e.version++
	return Change{Kind: ChangeDisplay, Version: e.version}, true
}

// Resize 修改网格尺寸并重建网格，之前的内容全部丢弃。
// 尺寸没有变化时不做任何事。新尺寸下放不进像素预算的缩放会被下调。
func (e *Editor) Resize(width, height int) (Change, bool) {
	width = CoerceDimension(width, e.maxDimension)
	height = CoerceDimension(height, e.maxDimension)
	if width == e.grid.Width() && height == e.grid.Height() {
		return Change{}, false
	}
	e.grid = NewGrid(width, height)
	e.cellSize = e.clampCellSize(e.cellSize)
	e.generation++
	e.version++
	return Change{Kind: ChangeGrid, Version: e.version}, true
}

// ApplyImport 用导入结果一次性替换整个网格。
// generation 是开始导入时读取的代数，网格在此期间被重建过则返回 ErrStaleImport。
func (e *Editor) ApplyImport(generation uint64, rows [][]Color) (Change, error) {
	if generation != e.generation {
		return Change{}, fmt.Errorf("%w: started at generation %d, now %d", ErrStaleImport, generation, e.generation)
	}
	if err := e.grid.Replace(rows); err != nil {
		return Change{}, err
	}
	e.version++
	return Change{Kind: ChangeGrid, Version: e.version}, nil
}
