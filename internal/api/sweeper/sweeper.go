// Package sweeper 周期性清理过期会话。
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"taskmanager/internal/pkg/metrics"
	"taskmanager/internal/pkg/session"
)

// Sweeper 按固定间隔删除超过有效期的会话记录。
//
// 过期会话在校验路径上也会被拒绝并顺手删除，这里的清扫只是
// 防止从不再出示的会话在表里无限堆积。
type Sweeper struct {
	store    session.Store
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// New 创建会话清扫器。ttl 为 0 时会话永不过期，Run 直接返回。
func New(store session.Store, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Run 阻塞运行清扫循环，直到 ctx 取消。
func (s *Sweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.ttl)
	n, err := s.store.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("sweep sessions failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		metrics.SessionsSweptTotal.Add(float64(n))
		s.logger.Info("swept expired sessions", slog.Int64("count", n))
	}
}
