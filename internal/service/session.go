package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/abdulaziz-backend/pixelpainter/internal/render"
)

// Listener 在每次可观察变更后被调用。
// 它运行在会话的事件循环中，必须是非阻塞的。
type Listener func(change domain.Change, state domain.EditorState)

// command 是投递到事件循环的一个操作
type command struct {
	run      func()
	finished chan struct{}
}

// Session 是一个编辑器会话：一个 Editor 加上独占它的事件循环。
// 所有操作按到达顺序在同一个 goroutine 中执行，Editor 永远不会被并发访问。
type Session struct {
	id        string
	createdAt time.Time

	editor    *domain.Editor // 只在事件循环中访问
	sampler   draw.Interpolator
	maxUpload int64
	maxPixels int64

	// 渲染在事件循环之外进行，避免大画布阻塞指针事件
	surfaceMu sync.Mutex
	surface   render.Surface

	commands  chan command
	done      chan struct{}
	closeOnce sync.Once

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int

	lastActive atomic.Int64 // UnixNano
	log        *logrus.Entry
}

// SessionOptions 是创建会话时的参数
type SessionOptions struct {
	Width            int
	Height           int
	CellSize         int
	MaxDimension     int
	MaxUploadBytes   int64
	MaxImagePixels   int64 // 导入图像解码后的像素上限
	MaxSurfacePixels int64 // 渲染画布的像素上限，限制了可用的最大缩放
	Sampler          draw.Interpolator
}

// NewSession 创建会话并启动其事件循环
func NewSession(id string, opts SessionOptions) *Session {
	if opts.CellSize == 0 {
		opts.CellSize = domain.DefaultCellSize
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.MaxImagePixels <= 0 {
		opts.MaxImagePixels = render.DefaultMaxImagePixels
	}
	if opts.Sampler == nil {
		opts.Sampler = draw.ApproxBiLinear
	}
	s := &Session{
		id:        id,
		createdAt: time.Now(),
		editor: domain.NewEditor(opts.Width, opts.Height, opts.CellSize,
			domain.WithMaxDimension(opts.MaxDimension),
			domain.WithMaxSurfacePixels(opts.MaxSurfacePixels)),
		sampler:   opts.Sampler,
		maxUpload: opts.MaxUploadBytes,
		maxPixels: opts.MaxImagePixels,
		commands:  make(chan command, 64),
		done:      make(chan struct{}),
		listeners: make(map[int]Listener),
		log:       logrus.WithFields(logrus.Fields{"component": "session", "session_id": id}),
	}
	s.touch()
	go s.run()
	return s
}

func (s *Session) ID() string { return s.id }

// Done 在会话关闭后可读
func (s *Session) Done() <-chan struct{} { return s.done }

// LastActive 返回最近一次操作的时间
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixNano()) }

// Close 停止事件循环。之后的操作都返回 ErrSessionClosed。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.log.Info("Session closed")
	})
}

// Subscribe 注册变更监听器，返回取消函数
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// run 是会话的事件循环
func (s *Session) run() {
	s.log.Debug("Session loop running")
	for {
		select {
		case cmd := <-s.commands:
			cmd.run()
			close(cmd.finished)
		case <-s.done:
			s.log.Debug("Session loop stopped")
			return
		}
	}
}

// do 把 fn 投递到事件循环并等待其执行完毕
func (s *Session) do(ctx context.Context, fn func()) error {
	cmd := command{run: fn, finished: make(chan struct{})}
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	s.touch()
	select {
	case <-cmd.finished:
		return nil
	case <-s.done:
		// 关闭与执行竞争时以实际执行结果为准
		select {
		case <-cmd.finished:
			return nil
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate 在事件循环中执行一次编辑，并在发生变更时通知监听器
func (s *Session) mutate(ctx context.Context, fn func(e *domain.Editor) (domain.Change, bool)) (domain.EditorState, error) {
	var state domain.EditorState
	err := s.do(ctx, func() {
		change, changed := fn(s.editor)
		state = s.editor.State()
		if changed {
			s.notify(change, state)
		}
	})
	return state, err
}

func (s *Session) notify(change domain.Change, state domain.EditorState) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, l := range s.listeners {
		l(change, state)
	}
}

// State 返回当前状态
func (s *Session) State(ctx context.Context) (domain.EditorState, error) {
	var state domain.EditorState
	err := s.do(ctx, func() { state = s.editor.State() })
	return state, err
}

// HandlePointer 处理一次指针事件
func (s *Session) HandlePointer(ctx context.Context, ev domain.PointerEvent) (domain.EditorState, error) {
	if err := ev.Validate(); err != nil {
		return domain.EditorState{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return s.mutate(ctx, func(e *domain.Editor) (domain.Change, bool) {
		change, changed, _ := e.HandlePointer(ev)
		return change, changed
	})
}

// SetColor 设置画笔颜色
func (s *Session) SetColor(ctx context.Context, c domain.Color) (domain.EditorState, error) {
	return s.mutate(ctx, func(e *domain.Editor) (domain.Change, bool) { return e.SetColor(c) })
}

// SetErasing 设置擦除模式
func (s *Session) SetErasing(ctx context.Context, erasing bool) (domain.EditorState, error) {
	return s.mutate(ctx, func(e *domain.Editor) (domain.Change, bool) { return e.SetErasing(erasing) })
}

// ToggleErase 切换擦除模式
func (s *Session) ToggleErase(ctx context.Context) (domain.EditorState, error) {
	return s.mutate(ctx, func(e *domain.Editor) (domain.Change, bool) { return e.ToggleErase(), true })
}

// SetCellSize 修改缩放级别 (限制在 [5, 50])
func (s *Session) SetCellSize(ctx context.Context, size int) (domain.EditorState, error) {
	return s.mutate(ctx, func(e *domain.Editor) (domain.Change, bool) { return e.SetCellSize(size) })
}

// Resize 修改网格尺寸，网格被重建为全黑
func (s *Session) Resize(ctx context.Context, width, height int) (domain.EditorState, error) {
	return s.mutate(ctx, func(e *domain.Editor) (domain.Change, bool) { return e.Resize(width, height) })
}

// FillAll 把整个网格填充为当前画笔颜色
func (s *Session) FillAll(ctx context.Context) (domain.EditorState, error) {
	return s.mutate(ctx, func(e *domain.Editor) (domain.Change, bool) { return e.FillAll(), true })
}

// Render 返回当前状态对应的画布。返回的图像之后不会被修改。
// 事件循环只负责取快照，绘制在调用方的 goroutine 中完成。
func (s *Session) Render(ctx context.Context) (*image.RGBA, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()
	return s.surface.Sync(state), nil
}

// Export 把调用时刻的画布编码为 PNG 写入 w
func (s *Session) Export(ctx context.Context, w io.Writer) error {
	img, err := s.Render(ctx)
	if err != nil {
		return err
	}
	return render.EncodePNG(w, img)
}

type importResult struct {
	state domain.EditorState
	err   error
}

// Import 把用户上传的图像降采样到网格尺寸并整体替换网格。
//
// 解码在独立的 goroutine 中进行，完成后结果被投递回事件循环；
// 只有会话仍然存活且网格代数未变化时才会应用。ctx 只控制等待，不会取消解码。
func (s *Session) Import(ctx context.Context, r io.Reader) (domain.EditorState, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return domain.EditorState{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if int64(len(data)) > s.maxUpload {
		return domain.EditorState{}, ErrImageTooLarge
	}

	var generation uint64
	var width, height int
	if err := s.do(ctx, func() {
		generation = s.editor.Generation()
		width, height = s.editor.Width(), s.editor.Height()
	}); err != nil {
		return domain.EditorState{}, err
	}

	logCtx := s.log.WithFields(logrus.Fields{"operation": "Import", "generation": generation, "bytes": len(data)})
	results := make(chan importResult, 1)
	go func() {
		state, err := s.decodeAndApply(data, generation, width, height)
		if err != nil {
			logCtx.WithError(err).Warn("Import not applied")
		} else {
			logCtx.WithField("version", state.Version).Info("Import applied")
		}
		results <- importResult{state: state, err: err}
	}()

	select {
	case res := <-results:
		return res.state, res.err
	case <-ctx.Done():
		return domain.EditorState{}, ctx.Err()
	}
}

// decodeAndApply 在事件循环之外解码，然后把替换操作投递回事件循环
func (s *Session) decodeAndApply(data []byte, generation uint64, width, height int) (domain.EditorState, error) {
	img, _, err := render.Decode(data, s.maxPixels)
	if err != nil {
		if errors.Is(err, render.ErrTooManyPixels) {
			return domain.EditorState{}, fmt.Errorf("%w: %v", ErrImageTooLarge, err)
		}
		return domain.EditorState{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	rows, err := render.Downsample(img, width, height, s.sampler)
	if err != nil {
		return domain.EditorState{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	var applyErr error
	// 解码完成时请求可能早已结束，这里不能再使用调用方的 ctx
	state, err := s.mutate(context.Background(), func(e *domain.Editor) (domain.Change, bool) {
		change, err := e.ApplyImport(generation, rows)
		if err != nil {
			applyErr = err
			return domain.Change{}, false
		}
		return change, true
	})
	if err != nil {
		return domain.EditorState{}, err
	}
	if applyErr != nil {
		if errors.Is(applyErr, domain.ErrStaleImport) {
			return state, fmt.Errorf("%w: %v", ErrStaleImport, applyErr)
		}
		return state, fmt.Errorf("%w: %v", ErrInternalServer, applyErr)
	}
	return state, nil
}
