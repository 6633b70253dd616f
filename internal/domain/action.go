package domain

import (
	"fmt"
	"math"
)

// PointerEventType 是画布上的指针事件类型
type PointerEventType string

const (
	PointerDown  PointerEventType = "down"
	PointerMove  PointerEventType = "move"
	PointerUp    PointerEventType = "up"
	PointerLeave PointerEventType = "leave"
)

// PointerEvent 表示一次指针事件。X/Y 是相对画布左上角的像素坐标，可以是小数。
type PointerEvent struct {
	Type PointerEventType `json:"type"`
	X    float64          `json:"x"`
	Y    float64          `json:"y"`
}

// Validate 检查事件类型和坐标是否可用。
// 越界坐标不是错误 (编辑时会被静默忽略)，但 NaN/Inf 不能映射到单元格。
func (e PointerEvent) Validate() error {
	switch e.Type {
	case PointerDown, PointerMove:
		if math.IsNaN(e.X) || math.IsNaN(e.Y) || math.IsInf(e.X, 0) || math.IsInf(e.Y, 0) {
			return fmt.Errorf("pointer %s: coordinates must be finite", e.Type)
		}
		return nil
	case PointerUp, PointerLeave:
		return nil
	default:
		return fmt.Errorf("unknown pointer event type %q", e.Type)
	}
}

// ChangeKind 描述一次状态变更影响的范围
type ChangeKind string

const (
	ChangeCell    ChangeKind = "cell"    // 单个单元格
	ChangeGrid    ChangeKind = "grid"    // 整个网格 (填充、导入、尺寸变化)
	ChangeDisplay ChangeKind = "display" // 单元格大小
	ChangeTool    ChangeKind = "tool"    // 画笔颜色或擦除模式
)

// Change 是编辑器产生的一次可观察变更
type Change struct {
	Kind    ChangeKind
	Col     int   // 仅 ChangeCell
	Row     int   // 仅 ChangeCell
	Color   Color // 仅 ChangeCell
	Version uint64
}
