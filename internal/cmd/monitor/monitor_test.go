package monitor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/clambin/energyua-monitor/internal/configuration"
	"github.com/clambin/energyua-monitor/internal/publisher"
	"github.com/clambin/energyua-monitor/internal/resolver/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func Test_makeTasks(t *testing.T) {
	testCases := []struct {
		name    string
		config  string
		targets map[string]publisher.Publisher
		length  int
	}{
		{
			name: "no brokers",
			config: `
source:
  group: 3-1
`,
			length: 5,
		},
		{
			name: "brokers",
			config: `
source:
  group: 3-1
parser:
  mode: countdown
`,
			targets: map[string]publisher.Publisher{"fake": &publisher.FakePublisher{}},
			length:  6,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := viper.New()
			require.NoError(t, configuration.SetDefaults(v))
			v.SetConfigType("yaml")
			require.NoError(t, v.ReadConfig(bytes.NewBufferString(tt.config)))
			cfg, err := configuration.FromViper(v)
			require.NoError(t, err)

			tasks, err := makeTasks(cfg, mocks.NewFetcher(t), tt.targets, prometheus.NewPedanticRegistry(), slog.Default())
			require.NoError(t, err)
			assert.Len(t, tasks, tt.length)
		})
	}
}

func Test_run_InvalidConfiguration(t *testing.T) {
	v := viper.New()
	require.NoError(t, configuration.SetDefaults(v))
	err := run(context.Background(), v, "test", slog.Default())
	assert.ErrorIs(t, err, configuration.ErrInvalidConfiguration)
}

func Test_runTasks(t *testing.T) {
	v := viper.New()
	require.NoError(t, configuration.SetDefaults(v))
	v.Set("source.group", "3-1")
	v.Set("exporter.addr", "127.0.0.1:19090")
	v.Set("api.addr", "127.0.0.1:18080")
	cfg, err := configuration.FromViper(v)
	require.NoError(t, err)

	f := mocks.NewFetcher(t)
	f.EXPECT().
		Fetch(mock.Anything, "https://energy-ua.info/cherga/3-1").
		Return(`<div class="periods_items"><span><b>10:00</b> - <b>12:00</b></span></div>`, nil)

	tasks, err := makeTasks(cfg, f, nil, prometheus.NewPedanticRegistry(), slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- runTasks(ctx, tasks) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18080/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:19090/metrics")
		if err != nil {
			return false
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return strings.Contains(string(body), "energyua_schedule_intervals")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
}

func Test_connectTargets(t *testing.T) {
	v := viper.New()
	require.NoError(t, configuration.SetDefaults(v))
	v.Set("source.group", "3-1")
	cfg, err := configuration.FromViper(v)
	require.NoError(t, err)

	targets, err := connectTargets(cfg, slog.Default())
	require.NoError(t, err)
	assert.Empty(t, targets)

	v.Set("slack.token", "xoxb-1234")
	cfg, err = configuration.FromViper(v)
	require.NoError(t, err)
	targets, err = connectTargets(cfg, slog.Default())
	require.NoError(t, err)
	require.Contains(t, targets, "slack")
	assert.IsType(t, &publisher.SlackPublisher{}, targets["slack"])
}
