package quote

import "github.com/shopspring/decimal"

// GapFilter 维护最近若干次报价变化，按绝对值均值给出波动指标。
type GapFilter struct {
	capacity int
	window   []decimal.Decimal
}

// NewGapFilter 创建容量为 capacity 的滑动窗口。
func NewGapFilter(capacity int) *GapFilter {
	if capacity <= 0 {
		capacity = 1
	}
	return &GapFilter{
		capacity: capacity,
		window:   make([]decimal.Decimal, 0, capacity+1),
	}
}

// Update 追加一次价格变化，超出容量时淘汰最旧的一项，返回窗口内绝对值均值。
func (f *GapFilter) Update(delta decimal.Decimal) decimal.Decimal {
	f.window = append(f.window, delta)
	if len(f.window) > f.capacity {
		copy(f.window, f.window[1:])
		f.window = f.window[:f.capacity]
	}
	return f.Signal()
}

// Signal 返回当前窗口的绝对值均值，空窗口为零。
func (f *GapFilter) Signal() decimal.Decimal {
	if len(f.window) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, v := range f.window {
		total = total.Add(v.Abs())
	}
	return total.Div(decimal.NewFromInt(int64(len(f.window))))
}

// Len 返回窗口内元素个数。
func (f *GapFilter) Len() int {
	return len(f.window)
}

// Values 返回窗口副本，最旧的在前。
func (f *GapFilter) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, len(f.window))
	copy(out, f.window)
	return out
}
