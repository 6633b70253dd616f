package dto

import "github.com/abdulaziz-backend/pixelpainter/internal/domain"

// StateDTO 是完整的编辑器状态，用于 HTTP 响应和 WebSocket 连接时的首帧
type StateDTO struct {
	Type       string     `json:"type"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	CellSize   int        `json:"cell_size"`
	Color      string     `json:"color"`
	Erasing    bool       `json:"erasing"`
	Painting   bool       `json:"painting"`
	Version    uint64     `json:"version"`
	Generation uint64     `json:"generation"`
	Grid       [][]string `json:"grid"`
}

// NewState 把领域快照转换为 StateDTO
func NewState(s domain.EditorState) StateDTO {
	return StateDTO{
		Type:       "state",
		Width:      s.Width,
		Height:     s.Height,
		CellSize:   s.CellSize,
		Color:      s.Tool.Color.Hex(),
		Erasing:    s.Tool.Erasing,
		Painting:   s.Tool.Painting,
		Version:    s.Version,
		Generation: s.Generation,
		Grid:       s.Grid.Hex(),
	}
}

// CellFrame 单个单元格变化
type CellFrame struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	Col     int    `json:"col"`
	Row     int    `json:"row"`
	Color   string `json:"color"`
}

// GridFrame 整个网格被替换 (填充、导入、尺寸变化)
type GridFrame struct {
	Type       string     `json:"type"`
	Version    uint64     `json:"version"`
	Generation uint64     `json:"generation"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	CellSize   int        `json:"cell_size"` // 尺寸变大时缩放可能被下调
	Grid       [][]string `json:"grid"`
}

// DisplayFrame 单元格大小变化
type DisplayFrame struct {
	Type     string `json:"type"`
	Version  uint64 `json:"version"`
	CellSize int    `json:"cell_size"`
}

// ToolFrame 画笔颜色或擦除模式变化
type ToolFrame struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	Color   string `json:"color"`
	Erasing bool   `json:"erasing"`
}

// FrameForChange 根据变更类型选择要推送给客户端的帧
func FrameForChange(change domain.Change, state domain.EditorState) interface{} {
	switch change.Kind {
	case domain.ChangeCell:
		return CellFrame{
			Type:    string(domain.ChangeCell),
			Version: change.Version,
			Col:     change.Col,
			Row:     change.Row,
			Color:   change.Color.Hex(),
		}
	case domain.ChangeGrid:
		return GridFrame{
			Type:       string(domain.ChangeGrid),
			Version:    state.Version,
			Generation: state.Generation,
			Width:      state.Width,
			Height:     state.Height,
			CellSize:   state.CellSize,
			Grid:       state.Grid.Hex(),
		}
	case domain.ChangeDisplay:
		return DisplayFrame{Type: string(domain.ChangeDisplay), Version: change.Version, CellSize: state.CellSize}
	case domain.ChangeTool:
		return ToolFrame{
			Type:    string(domain.ChangeTool),
			Version: change.Version,
			Color:   state.Tool.Color.Hex(),
			Erasing: state.Tool.Erasing,
		}
	default:
		return NewState(state)
	}
}
