package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/brequin/catalog/config"
	"github.com/brequin/catalog/metrics"
	"github.com/brequin/catalog/notify"
)

func TestStartWithoutDatabase(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("HARVEST_PROXIES", "http://proxy-a:3128")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "")
	t.Setenv("DISCORD_WEBHOOK_ID", "")

	a, err := Start(context.Background(), Options{Command: "details"})
	require.NoError(t, err)
	defer a.Close()

	assert.NotEmpty(t, a.RunID)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Notifier)
	assert.NotNil(t, a.Banner)

	a.Finish(notify.Report{Term: "202510", Scraped: 3})
	a.Finish(notify.Report{Term: "202510", Err: errors.New("boom")})
}

func TestStartRejectsBadProxy(t *testing.T) {
	t.Setenv("HARVEST_PROXIES", "http://[::1")
	t.Setenv("LOG_LEVEL", "error")

	_, err := Start(context.Background(), Options{Command: "details"})
	assert.Error(t, err)
}

type failingReporter struct {
	reports []notify.Report
}

func (r *failingReporter) Send(report notify.Report) error {
	r.reports = append(r.reports, report)
	return errors.New("webhook unavailable")
}

func TestFinishLogsUndeliveredReport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reporter := &failingReporter{}
	a := &App{
		Config:   &config.Config{},
		Log:      zap.New(core),
		Metrics:  metrics.New(),
		Notifier: reporter,
		RunID:    "run-1",
		command:  "courses",
		started:  time.Now(),
		base:     zap.NewNop(),
	}

	a.Finish(notify.Report{Term: "202510", Scraped: 4})

	require.Len(t, reporter.reports, 1)
	assert.Equal(t, "run-1", reporter.reports[0].RunID)
	assert.Equal(t, "courses", reporter.reports[0].Command)

	undelivered := logs.FilterMessage("run report not delivered").All()
	require.Len(t, undelivered, 1)
	assert.Equal(t, "webhook unavailable", undelivered[0].ContextMap()["error"])
	assert.Equal(t, 1, logs.FilterMessage("run finished").Len())
}
