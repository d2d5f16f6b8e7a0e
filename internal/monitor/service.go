package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"makerbot/internal/exchange"
	"makerbot/internal/execution"
	"makerbot/internal/position"
	"makerbot/internal/quote"
	"makerbot/internal/store"
)

// Service 负责持久化监控事件。事件只写不读回决策逻辑。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    time.Now,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	cycle_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
CREATE INDEX IF NOT EXISTS idx_monitor_events_cycle ON monitor_events(cycle_id);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, cycle_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		string(event.Type), event.CycleID, string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

func (s *Service) recordQuietly(ctx context.Context, typ EventType, cycleID string, payload interface{}) {
	if err := s.Record(ctx, Event{Type: typ, CycleID: cycleID, Payload: payload}); err != nil {
		s.logger.Warn("记录监控事件失败",
			zap.String("type", string(typ)),
			zap.String("cycle_id", cycleID),
			zap.Error(err),
		)
	}
}

// RecordBalance 记录余额快照。
func (s *Service) RecordBalance(ctx context.Context, cycleID string, snap position.Snapshot) {
	s.recordQuietly(ctx, EventBalance, cycleID, BalancePayload{Snapshot: snap})
}

// RecordQuote 记录报价与波动指标。
func (s *Service) RecordQuote(ctx context.Context, cycleID string, t exchange.Ticker, q quote.Quote, signal decimal.Decimal, hasSignal bool) {
	s.recordQuietly(ctx, EventQuote, cycleID, NewQuotePayload(t, q, signal, hasSignal))
}

// RecordCancel 记录单笔撤单结果。
func (s *Service) RecordCancel(ctx context.Context, cycleID string, order exchange.Order, cancelErr error) {
	payload := CancelPayload{OrderID: order.ID, Side: order.Side, Success: cancelErr == nil}
	if cancelErr != nil {
		payload.Error = cancelErr.Error()
	}
	s.recordQuietly(ctx, EventCancel, cycleID, payload)
}

// RecordOrder 记录单侧下单结果。
func (s *Service) RecordOrder(ctx context.Context, cycleID string, outcome execution.Outcome) {
	s.recordQuietly(ctx, EventOrder, cycleID, OrderPayload{Outcome: outcome})
}

// RecordBreaker 记录熔断。
func (s *Service) RecordBreaker(ctx context.Context, cycleID string, signal, threshold decimal.Decimal) {
	s.recordQuietly(ctx, EventBreaker, cycleID, BreakerPayload{Signal: signal, Threshold: threshold})
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, cycleID string, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Context: ctxMap,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	s.recordQuietly(ctx, EventError, cycleID, payload)
}

// ListEvents 按类型检索最近事件，eventType 为空时返回全部类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, cycle_id, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			cycleID string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &cycleID, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Time{}
		}

		events = append(events, Event{
			Type:      EventType(typ),
			CycleID:   cycleID,
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
