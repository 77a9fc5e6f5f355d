package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cardstall/internal/cache"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"
)

// 对账快照缓存键与有效期
const (
	reconcileSnapshotKey = "reconcile:snapshot"
	reconcileSnapshotTTL = 24 * time.Hour
)

// ReconcileSnapshot 对账快照：已支付但交付状态不一致的订单数
type ReconcileSnapshot struct {
	Count     int64     `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReconcileService 订单与卡密一致性对账服务
type ReconcileService struct {
	orders repository.OrderRepository

	mu       sync.RWMutex
	snapshot ReconcileSnapshot
}

// NewReconcileService 创建对账服务
func NewReconcileService(orders repository.OrderRepository) *ReconcileService {
	return &ReconcileService{orders: orders}
}

// Refresh 重新统计偏差订单并更新快照
func (s *ReconcileService) Refresh(ctx context.Context) (ReconcileSnapshot, error) {
	count, err := s.orders.CountPaidCardDrift()
	if err != nil {
		return ReconcileSnapshot{}, err
	}

	snapshot := ReconcileSnapshot{Count: count, UpdatedAt: time.Now()}
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	if payload, err := json.Marshal(snapshot); err == nil {
		if err := cache.Set(ctx, cache.Key(reconcileSnapshotKey), string(payload), reconcileSnapshotTTL); err != nil {
			logger.Warnw("对账快照写入缓存失败", "error", err)
		}
	}

	if count > 0 {
		logger.Warnw("发现交付状态偏差订单", "count", count)
	}
	return snapshot, nil
}

// Snapshot 返回当前快照。本地快照为空时尝试从缓存恢复（多实例共享）。
func (s *ReconcileService) Snapshot(ctx context.Context) ReconcileSnapshot {
	s.mu.RLock()
	snapshot := s.snapshot
	s.mu.RUnlock()
	if !snapshot.UpdatedAt.IsZero() {
		return snapshot
	}

	payload, err := cache.Get(ctx, cache.Key(reconcileSnapshotKey))
	if err != nil || payload == "" {
		return snapshot
	}
	var cached ReconcileSnapshot
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		return snapshot
	}
	s.mu.Lock()
	if s.snapshot.UpdatedAt.IsZero() {
		s.snapshot = cached
	}
	snapshot = s.snapshot
	s.mu.Unlock()
	return snapshot
}

// ListDrift 分页获取偏差订单明细
func (s *ReconcileService) ListDrift(page, pageSize int) ([]models.Order, int64, error) {
	return s.orders.ListPaidCardDrift(page, pageSize)
}
