package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "1000", cfg.Threshold().String())
	require.Equal(t, "2000", cfg.RegistrationFeeCap().String())
	require.Equal(t, "0.1", cfg.LoanPenaltyRate().String())
	require.Equal(t, "0.6", cfg.Dividend().String())

	anchor, err := cfg.WindowAnchor()
	require.NoError(t, err)
	require.Equal(t, time.Hour+time.Minute+time.Second, anchor)

	now := time.Date(2021, time.July, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 2016, cfg.ReportingFirstYear(now))
	cfg.FirstYear = 2012
	require.Equal(t, 2012, cfg.ReportingFirstYear(now))
}

func TestLoadConfigRejectsInvalidPolicy(t *testing.T) {
	t.Setenv("DIVIDEND_RATIO", "1.5")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("DIVIDEND_RATIO", "0.5")
	t.Setenv("SUMMARY_WINDOW_ANCHOR", "25:00")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("SUMMARY_WINDOW_ANCHOR", "00:00:00")
	t.Setenv("DEPOSIT_OVERDUE_THRESHOLD", "0")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf).Info("hidden")
	require.Empty(t, buf.String())

	newLogger(&Config{LogFormat: "json", LogLevel: "debug"}, &buf).Debug("shown")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}
