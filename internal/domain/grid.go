package domain

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch 表示替换数据的尺寸与网格不一致
var ErrDimensionMismatch = errors.New("grid dimension mismatch")

// Grid 是 height 行 x width 列的颜色网格，按行存储。
// 单元格写入在行粒度上写时复制：只替换受影响的那一行，其他行与快照共享。
type Grid struct {
	width  int
	height int
	rows   [][]Color
}

// NewGrid 创建一个所有单元格都为 EraseColor 的网格。
// 非正的尺寸会被修正为 1。
func NewGrid(width, height int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	rows := make([][]Color, height)
	for i := range rows {
		row := make([]Color, width)
		for j := range row {
			row[j] = EraseColor
		}
		rows[i] = row
	}
	return &Grid{width: width, height: height, rows: rows}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds 判断 (col, row) 是否落在 [0,width) x [0,height) 内
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.width && row >= 0 && row < g.height
}

// At 返回单元格颜色，越界时 ok 为 false
func (g *Grid) At(col, row int) (Color, bool) {
	if !g.InBounds(col, row) {
		return Color{}, false
	}
	return g.rows[row][col], true
}

// Set 写入单个单元格。越界或颜色未变化时返回 false，不做任何修改。
func (g *Grid) Set(col, row int, c Color) bool {
	if !g.InBounds(col, row) {
		return false
	}
	if g.rows[row][col] == c {
		return false
	}
	// 复制该行再修改，旧行仍被之前的快照持有
	next := make([]Color, g.width)
	copy(next, g.rows[row])
	next[col] = c
	g.rows[row] = next
	return true
}

// Fill 无条件地把所有单元格设置为 c (不是洪水填充)
func (g *Grid) Fill(c Color) {
	rows := make([][]Color, g.height)
	for i := range rows {
		row := make([]Color, g.width)
		for j := range row {
			row[j] = c
		}
		rows[i] = row
	}
	g.rows = rows
}

// Replace 一次性替换整个网格内容，尺寸必须完全一致。
// 调用方交出 rows 的所有权。
func (g *Grid) Replace(rows [][]Color) error {
	if len(rows) != g.height {
		return fmt.Errorf("%w: got %d rows, want %d", ErrDimensionMismatch, len(rows), g.height)
	}
	for i, row := range rows {
		if len(row) != g.width {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrDimensionMismatch, i, len(row), g.width)
		}
	}
	g.rows = rows
	return nil
}

// Snapshot 返回当前内容的不可变视图。
// 只复制外层切片，行本身因为写时复制可以安全共享。
func (g *Grid) Snapshot() GridSnapshot {
	rows := make([][]Color, len(g.rows))
	copy(rows, g.rows)
	return GridSnapshot{Width: g.width, Height: g.height, rows: rows}
}

// GridSnapshot 是某一时刻网格内容的只读视图
type GridSnapshot struct {
	Width  int
	Height int
	rows   [][]Color
}

// At 返回单元格颜色，越界时 ok 为 false
func (s GridSnapshot) At(col, row int) (Color, bool) {
	if col < 0 || col >= s.Width || row < 0 || row >= s.Height {
		return Color{}, false
	}
	return s.rows[row][col], true
}

// SameRow 报告两个快照的第 row 行是否是同一份底层数据 (用于变更检测)
func (s GridSnapshot) SameRow(other GridSnapshot, row int) bool {
	if row < 0 || row >= len(s.rows) || row >= len(other.rows) {
		return false
	}
	a, b := s.rows[row], other.rows[row]
	return len(a) > 0 && len(a) == len(b) && &a[0] == &b[0]
}

// Hex 以 "#rrggbb" 字符串矩阵的形式返回网格，供 JSON 输出使用
func (s GridSnapshot) Hex() [][]string {
	out := make([][]string, len(s.rows))
	for i, row := range s.rows {
		line := make([]string, len(row))
		for j, c := range row {
			line[j] = c.Hex()
		}
		out[i] = line
	}
	return out
}
