package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
)

// SessionConfig 是 SessionService 创建会话时使用的默认值和限制
type SessionConfig struct {
	DefaultWidth     int
	DefaultHeight    int
	DefaultCellSize  int
	MaxDimension     int
	MaxUploadBytes   int64
	MaxImagePixels   int64
	MaxSurfacePixels int64
	Sampler          draw.Interpolator
	IdleTimeout      time.Duration
}

// SessionService 负责会话的创建、查找、关闭和空闲回收。
// 会话只存在于内存中，进程重启后全部丢失。
type SessionService struct {
	cfg    SessionConfig
	tokens *TokenService

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService 创建 SessionService 实例。
func NewSessionService(tokens *TokenService, cfg SessionConfig) *SessionService {
	if tokens == nil {
		panic("TokenService cannot be nil for SessionService")
	}
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = domain.DefaultWidth
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = domain.DefaultHeight
	}
	if cfg.DefaultCellSize <= 0 {
		cfg.DefaultCellSize = domain.DefaultCellSize
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = domain.DefaultMaxDimension
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	return &SessionService{
		cfg:      cfg,
		tokens:   tokens,
		sessions: make(map[string]*Session),
	}
}

// Create 创建一个新会话并签发 token。width/height 为 0 时使用默认尺寸。
func (s *SessionService) Create(ctx context.Context, width, height int) (*Session, string, error) {
	if width == 0 {
		width = s.cfg.DefaultWidth
	}
	if height == 0 {
		height = s.cfg.DefaultHeight
	}

	id, err := generateSessionID()
	if err != nil {
		logrus.WithError(err).Error("Failed to generate session id")
		return nil, "", ErrInternalServer
	}
	logCtx := logrus.WithField("session_id", id)

	token, err := s.tokens.Issue(id)
	if err != nil {
		logCtx.WithError(err).Error("Failed to issue session token")
		return nil, "", ErrInternalServer
	}

	session := NewSession(id, SessionOptions{
		Width:            width,
		Height:           height,
		CellSize:         s.cfg.DefaultCellSize,
		MaxDimension:     s.cfg.MaxDimension,
		MaxUploadBytes:   s.cfg.MaxUploadBytes,
		MaxImagePixels:   s.cfg.MaxImagePixels,
		MaxSurfacePixels: s.cfg.MaxSurfacePixels,
		Sampler:          s.cfg.Sampler,
	})

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	logCtx.WithFields(logrus.Fields{"width": width, "height": height}).Info("Session created")
	return session, token, nil
}

// Get 按 ID 查找存活的会话
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Authenticate 校验 token 并返回对应的会话
func (s *SessionService) Authenticate(ctx context.Context, token string) (*Session, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Close 关闭并移除会话
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// Count 返回存活会话数量
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ReapIdle 关闭在 now 之前已空闲超过 IdleTimeout 的会话，返回关闭数量
func (s *SessionService) ReapIdle(now time.Time) int {
	deadline := now.Add(-s.cfg.IdleTimeout)

	s.mu.Lock()
	var idle []*Session
	for id, session := range s.sessions {
		if session.LastActive().Before(deadline) {
			idle = append(idle, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range idle {
		session.Close()
	}
	if len(idle) > 0 {
		logrus.WithField("count", len(idle)).Info("Idle sessions reaped")
	}
	return len(idle)
}

// RunJanitor 周期性回收空闲会话，直到 ctx 结束。应在单独的 goroutine 中运行。
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.ReapIdle(now)
		case <-ctx.Done():
			return
		}
	}
}

// CloseAll 关闭所有会话，用于优雅停机
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// generateSessionID 生成 16 字节随机十六进制 ID
func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
