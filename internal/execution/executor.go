package execution

import (
	"context"
	"time"

	"go.uber.org/zap"

	"makerbot/internal/exchange"
)

type orderGateway interface {
	PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.PlaceResponse, error)
}

// Executor 依次提交卖单与买单，并维护订单账本。
type Executor struct {
	gw     orderGateway
	symbol string
	logger *zap.Logger
	now    func() time.Time
}

// NewExecutor 创建执行器。
func NewExecutor(gw orderGateway, symbol string, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		gw:     gw,
		symbol: symbol,
		logger: logger,
		now:    time.Now,
	}
}

// Execute 先卖后买。单侧失败（业务状态或传输错误）只记警告并清空该侧账本，
// 不影响另一侧；未下单的一侧账本保持不变。
func (e *Executor) Execute(ctx context.Context, plan Plan, ledger *Ledger) Result {
	result := Result{ExecutionTime: e.now().UTC()}

	if plan.Sell != nil {
		result.Sell = e.place(ctx, *plan.Sell, ledger)
	}
	if plan.Buy != nil {
		result.Buy = e.place(ctx, *plan.Buy, ledger)
	}

	return result
}

func (e *Executor) place(ctx context.Context, leg Leg, ledger *Ledger) Outcome {
	out := Outcome{Leg: leg, Attempted: true}

	res, err := e.gw.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol: e.symbol,
		Side:   leg.Side,
		Type:   exchange.OrderTypeLimit,
		Price:  leg.Price,
		Size:   leg.Size,
	})
	if err == nil {
		err = res.Err("place_order")
	}

	if err != nil {
		out.Err = err
		out.Message = err.Error()
		ledger.Clear(leg.Side)
		e.logger.Warn("创建订单失败",
			zap.String("side", string(leg.Side)),
			zap.Stringer("price", leg.Price),
			zap.Stringer("size", leg.Size),
			zap.Error(err),
		)
		return out
	}

	out.OrderID = res.OrderID
	ledger.Set(leg.Side, res.OrderID)
	e.logger.Info("创建订单成功",
		zap.String("side", string(leg.Side)),
		zap.Stringer("price", leg.Price),
		zap.Stringer("size", leg.Size),
		zap.String("order_id", res.OrderID),
	)
	return out
}
