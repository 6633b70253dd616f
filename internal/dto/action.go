package dto

import "github.com/abdulaziz-backend/pixelpainter/internal/domain"

// PointerMessage 表示从客户端 WebSocket 消息 (或 HTTP 回退接口) 中接收的指针事件
type PointerMessage struct {
	Type string  `json:"type" binding:"required,oneof=down move up leave"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Event 转换为领域事件
func (m PointerMessage) Event() domain.PointerEvent {
	return domain.PointerEvent{Type: domain.PointerEventType(m.Type), X: m.X, Y: m.Y}
}

// ErrorDTO 表示发送给客户端的错误消息数据结构
type ErrorDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError 创建错误帧
func NewError(message string) ErrorDTO {
	return ErrorDTO{Type: "error", Message: message}
}
