package quote

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGapFilter_WindowLengthIsBounded(t *testing.T) {
	f := NewGapFilter(20)
	for i := 1; i <= 45; i++ {
		f.Update(decimal.NewFromInt(int64(i)))
		want := i
		if want > 20 {
			want = 20
		}
		if f.Len() != want {
			t.Fatalf("after %d updates: len=%d want %d", i, f.Len(), want)
		}
	}
}

func TestGapFilter_MeanAfterEviction(t *testing.T) {
	f := NewGapFilter(20)
	var got decimal.Decimal
	for i := 1; i <= 21; i++ {
		got = f.Update(decimal.NewFromInt(int64(i)))
	}
	// 1 被淘汰，窗口为 2..21
	if !got.Equal(decimal.RequireFromString("11.5")) {
		t.Fatalf("unexpected mean %s", got)
	}
	if first := f.Values()[0]; !first.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("oldest entry should be 2, got %s", first)
	}
}

func TestGapFilter_AlternatingSignsUseAbsoluteValues(t *testing.T) {
	f := NewGapFilter(20)
	var got decimal.Decimal
	for i := 0; i < 21; i++ {
		v := decimal.NewFromInt(5)
		if i%2 == 1 {
			v = v.Neg()
		}
		got = f.Update(v)
	}
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected mean |delta| 5, got %s", got)
	}

	f = NewGapFilter(3)
	f.Update(decimal.NewFromInt(9))
	f.Update(decimal.NewFromInt(-1))
	f.Update(decimal.NewFromInt(1))
	if got := f.Update(decimal.NewFromInt(-1)); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("evicted 9 must not count, got %s", got)
	}
}

func TestGapFilter_EmptySignalIsZero(t *testing.T) {
	if s := NewGapFilter(20).Signal(); !s.IsZero() {
		t.Fatalf("expected zero signal, got %s", s)
	}
}
