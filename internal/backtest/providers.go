package backtest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"makerbot/internal/exchange"
)

// SliceSnapshotProvider 以固定序列提供快照。
type SliceSnapshotProvider struct {
	snapshots []exchange.Ticker
	index     int
}

func NewSliceSnapshotProvider(snaps []exchange.Ticker) *SliceSnapshotProvider {
	return &SliceSnapshotProvider{snapshots: snaps}
}

func (p *SliceSnapshotProvider) Next(ctx context.Context) (exchange.Ticker, bool, error) {
	if err := ctx.Err(); err != nil {
		return exchange.Ticker{}, false, err
	}
	if p.index >= len(p.snapshots) {
		return exchange.Ticker{}, false, nil
	}
	snap := p.snapshots[p.index]
	p.index++
	return snap, true, nil
}

var csvColumns = []string{"bid", "bid_qty", "ask", "ask_qty"}

// LoadCSV 读取带表头的盘口文件，列名不区分大小写，多余的列忽略。
func LoadCSV(r io.Reader) ([]exchange.Ticker, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("backtest: 回放文件为空")
		}
		return nil, fmt.Errorf("backtest: 读取表头失败: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("backtest: 缺少列 %q", col)
		}
	}

	var out []exchange.Ticker
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("backtest: 第 %d 行读取失败: %w", line, err)
		}

		values := make([]decimal.Decimal, len(csvColumns))
		for i, col := range csvColumns {
			pos := index[col]
			if pos >= len(rec) {
				return nil, fmt.Errorf("backtest: 第 %d 行缺少 %s", line, col)
			}
			v, err := decimal.NewFromString(strings.TrimSpace(rec[pos]))
			if err != nil {
				return nil, fmt.Errorf("backtest: 第 %d 行 %s 无效: %w", line, col, err)
			}
			values[i] = v
		}
		out = append(out, exchange.Ticker{
			BidPrice: values[0],
			BidQty:   values[1],
			AskPrice: values[2],
			AskQty:   values[3],
		})
	}
	return out, nil
}

// NewCSVSnapshotProvider 从文件加载全部快照。
func NewCSVSnapshotProvider(path string) (*SliceSnapshotProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: 打开回放文件失败: %w", err)
	}
	defer f.Close()

	snaps, err := LoadCSV(f)
	if err != nil {
		return nil, err
	}
	return NewSliceSnapshotProvider(snaps), nil
}
