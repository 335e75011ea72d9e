package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/rcliao/campaign-memory/internal/logging"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf)
	gt.V(t, logger).NotNil()

	logger.Info("npc saved")
	gt.S(t, buf.String()).Contains("npc saved")
}

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		level       string
		expectDebug bool
		expectWarn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, true},
		{"error", false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)
			logger.Debug("debug message")
			logger.Warn("warn message")

			if tc.expectDebug {
				gt.S(t, buf.String()).Contains("debug message")
			} else {
				gt.S(t, buf.String()).NotContains("debug message")
			}
			if tc.expectWarn {
				gt.S(t, buf.String()).Contains("warn message")
			} else {
				gt.S(t, buf.String()).NotContains("warn message")
			}
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logging.New("loud", buf)
	gt.S(t, buf.String()).Contains("invalid log level")
}

func TestParseLevel(t *testing.T) {
	lvl, ok := logging.ParseLevel("warning")
	gt.True(t, ok)
	gt.Equal(t, lvl, slog.LevelWarn)

	lvl, ok = logging.ParseLevel("verbose")
	gt.False(t, ok)
	gt.Equal(t, lvl, slog.LevelInfo)
}

func TestContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf)

	ctx := logging.With(context.Background(), logger)
	logging.From(ctx).Debug("from context")
	gt.S(t, buf.String()).Contains("from context")

	gt.Equal(t, logging.From(context.Background()), logging.Default())
}

func TestSetDefault(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	buf := &bytes.Buffer{}
	logging.SetDefault(logging.New("info", buf))
	logging.Default().Info("default replaced")
	gt.S(t, buf.String()).Contains("default replaced")
}
