package execution

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"makerbot/internal/config"
	"makerbot/internal/exchange"
)

type cancelGateway interface {
	GetOpenOrders(ctx context.Context, symbol string, states []exchange.OrderState) (exchange.OrdersResponse, error)
	CancelOrder(ctx context.Context, symbol, id string) (exchange.StatusResponse, error)
}

// CancelPolicy 决定撤单批次是否等待完成。
type CancelPolicy string

const (
	// CancelWait 等待全部撤单请求返回后再继续。
	CancelWait CancelPolicy = config.CancelWait
	// CancelDetach 发出撤单后立即返回，本轮下单可能仍看到冻结资金。
	CancelDetach CancelPolicy = config.CancelDetach
)

// CancelReport 汇总一次撤单批次。Detach 模式下只有 Listed 有效。
type CancelReport struct {
	Listed    int
	Cancelled int
	Failed    int
	Detached  bool
	Err       error
}

// CancelFunc 在每笔撤单返回后回调，err 为 nil 表示成功。
type CancelFunc func(order exchange.Order, err error)

// Canceller 撤销交易对上仍在挂单的订单。各笔撤单相互独立，一笔失败不影响其他。
type Canceller struct {
	gw          cancelGateway
	symbol      string
	policy      CancelPolicy
	concurrency int
	logger      *zap.Logger

	detached sync.WaitGroup
}

// NewCanceller 创建撤单器。
func NewCanceller(gw cancelGateway, symbol string, policy CancelPolicy, concurrency int, logger *zap.Logger) *Canceller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if policy == "" {
		policy = CancelWait
	}
	return &Canceller{
		gw:          gw,
		symbol:      symbol,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Policy 返回当前策略。
func (c *Canceller) Policy() CancelPolicy {
	return c.policy
}

// CancelStale 列出 submitted/partial_filled 状态的挂单并逐一撤销。
// 列单失败返回 error；单笔撤单失败只记录在报告中并回调 onResult（可为 nil）。
func (c *Canceller) CancelStale(ctx context.Context, onResult CancelFunc) (CancelReport, error) {
	res, err := c.gw.GetOpenOrders(ctx, c.symbol, exchange.RestingStates)
	if err != nil {
		return CancelReport{}, fmt.Errorf("execution: 查询挂单失败: %w", err)
	}
	if err := res.Err("get_open_orders"); err != nil {
		return CancelReport{}, fmt.Errorf("execution: 查询挂单失败: %w", err)
	}

	report := CancelReport{Listed: len(res.Orders)}
	if len(res.Orders) == 0 {
		return report, nil
	}

	c.logger.Info("撤销未成交挂单",
		zap.Int("orders", len(res.Orders)),
		zap.String("policy", string(c.policy)),
	)

	if c.policy == CancelDetach {
		report.Detached = true
		batchCtx := context.WithoutCancel(ctx)
		c.detached.Add(1)
		go func() {
			defer c.detached.Done()
			c.runBatch(batchCtx, res.Orders, onResult)
		}()
		return report, nil
	}

	done := c.runBatch(ctx, res.Orders, onResult)
	report.Cancelled = done.Cancelled
	report.Failed = done.Failed
	report.Err = done.Err
	return report, nil
}

// Wait 等待 detach 模式下仍在进行的撤单完成。
func (c *Canceller) Wait() {
	c.detached.Wait()
}

func (c *Canceller) runBatch(ctx context.Context, orders []exchange.Order, onResult CancelFunc) CancelReport {
	var (
		mu     sync.Mutex
		report CancelReport
	)

	var group errgroup.Group
	group.SetLimit(c.concurrency)

	for _, order := range orders {
		group.Go(func() error {
			err := c.cancelOne(ctx, order)

			mu.Lock()
			if err != nil {
				report.Failed++
				report.Err = multierr.Append(report.Err, err)
			} else {
				report.Cancelled++
			}
			mu.Unlock()

			if onResult != nil {
				onResult(order, err)
			}
			return nil
		})
	}
	_ = group.Wait()

	return report
}

func (c *Canceller) cancelOne(ctx context.Context, order exchange.Order) error {
	res, err := c.gw.CancelOrder(ctx, c.symbol, order.ID)
	if err == nil {
		err = res.Err("cancel_order")
	}
	if err != nil {
		c.logger.Warn("撤销订单失败",
			zap.String("side", string(order.Side)),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return fmt.Errorf("execution: 撤销 %s 订单 %s 失败: %w", order.Side, order.ID, err)
	}

	c.logger.Info("撤销订单",
		zap.String("side", string(order.Side)),
		zap.String("order_id", order.ID),
	)
	return nil
}
