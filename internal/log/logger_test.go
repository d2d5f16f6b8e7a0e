package log

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"makerbot/internal/config"
)

func TestEncoderConfig_BracketedPrefix(t *testing.T) {
	enc := zapcore.NewConsoleEncoder(EncoderConfig())
	ts := time.Date(2018, 6, 9, 8, 5, 3, 0, time.Local)

	buf, err := enc.EncodeEntry(zapcore.Entry{
		Level:   zapcore.WarnLevel,
		Time:    ts,
		Message: "挂卖单失败",
	}, nil)
	if err != nil {
		t.Fatalf("EncodeEntry returned error: %v", err)
	}
	defer buf.Free()

	want := "[2018-06-09 08:05:03] [WARN] 挂卖单失败\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", got, want)
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "application.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:            "info",
		Encoding:         "console",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		File:             config.LogFileConfig{Path: path, MaxSizeMB: 1},
	})
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	logger.Info("买一价: 6500.12")
	logger.Debug("不应写入")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	pattern := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[INFO\] .*买一价: 6500.12`)
	if !pattern.Match(data) {
		t.Fatalf("unexpected log content: %q", data)
	}
	if regexp.MustCompile("不应写入").Match(data) {
		t.Fatalf("debug line must be filtered at info level")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(config.LoggingConfig{Level: "loud", Encoding: "console"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
