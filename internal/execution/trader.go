package execution

import "context"

// Trader 抽象下单执行，方便在测试或回放中替换。
type Trader interface {
	Execute(ctx context.Context, plan Plan, ledger *Ledger) Result
}

var _ Trader = (*Executor)(nil)
