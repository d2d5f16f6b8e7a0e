package backtest

import "math"

// Metrics 记录回放绩效与做市活动指标。
type Metrics struct {
	TotalReturn float64
	MaxDrawdown float64
	SharpeRatio float64

	// OrdersPerCycle 为每轮平均成功下单数，满额为 2（买卖各一）。
	OrdersPerCycle float64
	// TripRatio 为熔断轮次占全部轮次的比例。
	TripRatio float64
	// FailureRatio 为失败轮次占全部轮次的比例。
	FailureRatio float64
}

// activity 为回放过程中的周期计数。
type activity struct {
	cycles  int
	orders  int
	tripped int
	failed  int
}

func calculateMetrics(equity, returns []float64, periodsPerYear float64, act activity) Metrics {
	var m Metrics
	if act.cycles > 0 {
		n := float64(act.cycles)
		m.OrdersPerCycle = float64(act.orders) / n
		m.TripRatio = float64(act.tripped) / n
		m.FailureRatio = float64(act.failed) / n
	}
	if len(equity) == 0 {
		return m
	}

	if first := equity[0]; first > 0 {
		m.TotalReturn = equity[len(equity)-1]/first - 1
	}
	m.MaxDrawdown = computeDrawdown(equity)
	m.SharpeRatio = computeSharpe(returns, periodsPerYear)
	return m
}

// computeDrawdown 返回权益曲线相对历史高点的最大回撤（正数）。
func computeDrawdown(equity []float64) float64 {
	var peak, worst float64
	for _, v := range equity {
		peak = math.Max(peak, v)
		if peak <= 0 {
			continue
		}
		worst = math.Max(worst, (peak-v)/peak)
	}
	return worst
}

// computeSharpe 以样本标准差计算夏普比率，periodsPerYear > 0 时年化。
func computeSharpe(returns []float64, periodsPerYear float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)

	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	if n > 1 {
		sq /= float64(n - 1)
	}
	std := math.Sqrt(sq)
	if std == 0 {
		return 0
	}

	ratio := mean / std
	if periodsPerYear > 0 {
		ratio *= math.Sqrt(periodsPerYear)
	}
	return ratio
}
