package dto

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
)

// Dimension 是宽或高的输入值。
// 接受 JSON 数字或字符串，字符串按输入框规则宽松解析，非数字按 1 处理。
// 字段缺失或为 null 时保持 0。
type Dimension int

func (d *Dimension) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Dimension(domain.ParseDimension(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*d = 1
		return nil
	}
	if math.IsNaN(f) || f < 1 {
		*d = 1
		return nil
	}
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	*d = Dimension(math.Floor(f))
	return nil
}

// CreateSessionRequest 创建会话的请求体，尺寸可选
type CreateSessionRequest struct {
	Width  Dimension `json:"width"`
	Height Dimension `json:"height"`
}

// CreateSessionResponse 创建会话的响应
type CreateSessionResponse struct {
	SessionID string   `json:"session_id"`
	Token     string   `json:"token"`
	State     StateDTO `json:"state"`
}

// ResizeRequest 修改网格尺寸
type ResizeRequest struct {
	Width  Dimension `json:"width"`
	Height Dimension `json:"height"`
}

// ColorRequest 修改画笔颜色
type ColorRequest struct {
	Color string `json:"color" binding:"required"`
}

// EraseRequest 设置擦除模式
type EraseRequest struct {
	Erasing *bool `json:"erasing" binding:"required"`
}

// ZoomRequest 修改单元格大小，超出 [5, 50] 时被限制
type ZoomRequest struct {
	CellSize *int `json:"cell_size" binding:"required"`
}
