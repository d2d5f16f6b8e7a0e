package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"makerbot/internal/config"
	"makerbot/internal/metrics"
)

// CycleFunc 执行一个周期，返回的 error 只记录日志，不会终止调度。
type CycleFunc func(ctx context.Context) error

// Scheduler 按 overlap 策略驱动周期：
// sequential 在上一轮结束后再等待间隔；skip 与 queue 按固定节拍触发，
// 周期运行中到达的节拍分别被丢弃或最多保留一个。
type Scheduler struct {
	interval     time.Duration
	initialDelay time.Duration
	overlap      string
	run          CycleFunc
	metrics      *metrics.Metrics
	logger       *zap.Logger

	newTicker func(time.Duration) (<-chan time.Time, func())
}

// NewScheduler 创建调度器。
func NewScheduler(cfg config.SchedulerConfig, run CycleFunc, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	overlap := cfg.Overlap
	if overlap == "" {
		overlap = config.OverlapSequential
	}
	return &Scheduler{
		interval:     interval,
		initialDelay: cfg.InitialDelay,
		overlap:      overlap,
		run:          run,
		metrics:      m,
		logger:       logger,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Run 阻塞直到 ctx 结束，正常退出返回 nil。
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("调度器启动",
		zap.Duration("interval", s.interval),
		zap.Duration("initial_delay", s.initialDelay),
		zap.String("overlap", s.overlap),
	)

	var err error
	switch s.overlap {
	case config.OverlapSkip:
		err = s.runTicked(ctx, 0)
	case config.OverlapQueue:
		err = s.runTicked(ctx, 1)
	default:
		err = s.runSequential(ctx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("调度器已停止")
	return nil
}

func (s *Scheduler) runSequential(ctx context.Context) error {
	delay := s.initialDelay
	for {
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		s.cycle(ctx)
		delay = s.interval
	}
}

// runTicked 由独立的 worker 执行周期，backlog 为运行期间可保留的节拍数。
func (s *Scheduler) runTicked(ctx context.Context, backlog int) error {
	if err := sleep(ctx, s.initialDelay); err != nil {
		return err
	}

	triggers := make(chan struct{}, backlog)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-triggers:
				s.cycle(ctx)
			}
		}
	}()

	ticks, stop := s.newTicker(s.interval)
	defer stop()

	fire := func() {
		select {
		case triggers <- struct{}{}:
		default:
			s.logger.Warn("上一轮周期尚未结束，丢弃本次触发", zap.String("overlap", s.overlap))
			s.metrics.CycleDone(metrics.ResultSkipped)
		}
	}

	// 首轮阻塞投递，skip 模式下 worker 尚未就绪时也不会被丢弃。
	select {
	case triggers <- struct{}{}:
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			<-done
			return ctx.Err()
		case <-ticks:
			fire()
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if err := s.run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("执行周期失败", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
