package http

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/abdulaziz-backend/pixelpainter/internal/dto"
	"github.com/abdulaziz-backend/pixelpainter/internal/middleware"
	"github.com/abdulaziz-backend/pixelpainter/internal/render"
	"github.com/abdulaziz-backend/pixelpainter/internal/service"
)

// ImageField 是导入接口的 multipart 字段名
const ImageField = "image"

// SessionHandler 封装了编辑器会话相关的 HTTP 处理逻辑
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	if sessions == nil {
		panic("SessionService cannot be nil for SessionHandler")
	}
	return &SessionHandler{sessions: sessions}
}

// Register 在 public 上注册创建会话的路由，在 authed (需要 Auth 中间件) 上注册其余路由
func (h *SessionHandler) Register(public, authed gin.IRoutes) {
	public.POST("/sessions", h.Create)

	authed.GET("/session", h.State)
	authed.DELETE("/session", h.Close)
	authed.PUT("/session/size", h.Resize)
	authed.PUT("/session/color", h.SetColor)
	authed.PUT("/session/erase", h.SetErasing)
	authed.POST("/session/erase/toggle", h.ToggleErase)
	authed.PUT("/session/zoom", h.SetZoom)
	authed.POST("/session/fill", h.Fill)
	authed.POST("/session/pointer", h.Pointer)
	authed.POST("/session/import", h.Import)
	authed.GET("/session/export", h.Export)
	authed.GET("/session/render.png", h.RenderPNG)
}

// session 取出 Auth 中间件认证过的会话
func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	id := c.GetString(middleware.SessionIDKey)
	if id == "" {
		logrus.Warn("Handler: session_id not found in context, middleware missing or failed?")
		ErrorResponse(c, http.StatusUnauthorized, "Session not authenticated")
		return nil, false
	}
	s, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return nil, false
	}
	return s, true
}

// respondState 统一处理返回编辑器状态的操作
func respondState(c *gin.Context, state domain.EditorState, err error) {
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.NewState(state))
}

// Create 创建新会话，尺寸可以是数字或字符串
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logrus.WithError(err).Warn("Handler.Create: Invalid input format")
			ErrorResponse(c, http.StatusBadRequest, "Invalid input: width and height must be numbers or strings")
			return
		}
	}

	s, token, err := h.sessions.Create(c.Request.Context(), int(req.Width), int(req.Height))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	state, err := s.State(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dto.CreateSessionResponse{
		SessionID: s.ID(),
		Token:     token,
		State:     dto.NewState(state),
	})
}

// State 返回当前完整状态
func (h *SessionHandler) State(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.State(c.Request.Context())
	respondState(c, state, err)
}

// Close 关闭会话
func (h *SessionHandler) Close(c *gin.Context) {
	id := c.GetString(middleware.SessionIDKey)
	if err := h.sessions.Close(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Resize 修改网格尺寸，非数字输入按 1 处理，网格被重建
func (h *SessionHandler) Resize(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: width and height are required")
		return
	}
	state, err := s.Resize(c.Request.Context(), int(req.Width), int(req.Height))
	respondState(c, state, err)
}

// SetColor 修改画笔颜色
func (h *SessionHandler) SetColor(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: color is required")
		return
	}
	color, err := domain.ParseColor(req.Color)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	state, err := s.SetColor(c.Request.Context(), color)
	respondState(c, state, err)
}

// SetErasing 设置擦除模式
func (h *SessionHandler) SetErasing(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.EraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: erasing is required")
		return
	}
	state, err := s.SetErasing(c.Request.Context(), *req.Erasing)
	respondState(c, state, err)
}

// ToggleErase 切换擦除模式
func (h *SessionHandler) ToggleErase(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.ToggleErase(c.Request.Context())
	respondState(c, state, err)
}

// SetZoom 修改单元格大小
func (h *SessionHandler) SetZoom(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.ZoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: cell_size is required")
		return
	}
	state, err := s.SetCellSize(c.Request.Context(), *req.CellSize)
	respondState(c, state, err)
}

// Fill 用画笔颜色填充整个网格
func (h *SessionHandler) Fill(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.FillAll(c.Request.Context())
	respondState(c, state, err)
}

// Pointer 是 WebSocket 不可用时的指针事件接口
func (h *SessionHandler) Pointer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.PointerMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: type must be one of down, move, up, leave")
		return
	}
	state, err := s.HandlePointer(c.Request.Context(), req.Event())
	respondState(c, state, err)
}

// Import 把上传的图像降采样到网格上。没有选择文件时什么也不做。
func (h *SessionHandler) Import(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"session_id": s.ID(), "operation": "Import"})

	fileHeader, err := c.FormFile(ImageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			logCtx.Debug("No file selected, nothing to import")
			c.Status(http.StatusNoContent)
			return
		}
		logCtx.WithError(err).Warn("Failed to read multipart form")
		ErrorResponse(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	if !isImageType(fileHeader.Header.Get("Content-Type")) {
		ErrorResponse(c, http.StatusUnsupportedMediaType, "Only image/* uploads are accepted")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logCtx.WithError(err).Error("Failed to open uploaded file")
		HandleServiceError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	state, err := s.Import(c.Request.Context(), file)
	respondState(c, state, err)
}

// isImageType 检查上传部分的 MIME 类型，缺失时交给解码器判断
func isImageType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// Export 以附件形式下载当前画布
func (h *SessionHandler) Export(c *gin.Context) {
	h.writePNG(c, fmt.Sprintf("attachment; filename=%q", render.ExportFilename))
}

// RenderPNG 以内联形式返回当前画布
func (h *SessionHandler) RenderPNG(c *gin.Context) {
	h.writePNG(c, fmt.Sprintf("inline; filename=%q", render.ExportFilename))
}

func (h *SessionHandler) writePNG(c *gin.Context, disposition string) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.Export(c.Request.Context(), &buf); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", disposition)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
