package collector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	inOutage = prometheus.NewDesc(
		prometheus.BuildFQName("energyua", "schedule", "in_outage"),
		"1 if the monitored group is currently in a scheduled outage",
		[]string{"url"},
		nil,
	)
	minutesUntil = prometheus.NewDesc(
		prometheus.BuildFQName("energyua", "schedule", "minutes_until"),
		"Minutes until the next state change. -1 if no change is known",
		[]string{"url"},
		nil,
	)
	pretrigger = prometheus.NewDesc(
		prometheus.BuildFQName("energyua", "schedule", "pretrigger"),
		"1 if the pretrigger condition is met",
		[]string{"url"},
		nil,
	)
	intervals = prometheus.NewDesc(
		prometheus.BuildFQName("energyua", "schedule", "intervals"),
		"Number of outage intervals on the schedule",
		[]string{"url"},
		nil,
	)
	nextChange = prometheus.NewDesc(
		prometheus.BuildFQName("energyua", "schedule", "next_change_timestamp_seconds"),
		"Time of the next state change. Label kind is 'on' if power comes back, 'off' if it goes out",
		[]string{"url", "kind"},
		nil,
	)
)

type Publisher interface {
	Subscribe() chan schedule.Snapshot
	Unsubscribe(chan schedule.Snapshot)
}

// Collector exports the latest published snapshot as Prometheus metrics.
type Collector struct {
	Publisher Publisher
	Logger    *slog.Logger
	lock      sync.RWMutex
	last      *schedule.Snapshot
}

func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	ch := c.Publisher.Subscribe()
	defer c.Publisher.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-ch:
			c.process(s)
		}
	}
}

func (c *Collector) process(s schedule.Snapshot) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.last = &s
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- inOutage
	ch <- minutesUntil
	ch <- pretrigger
	ch <- intervals
	ch <- nextChange
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.last == nil {
		return
	}

	s := c.last
	ch <- prometheus.MustNewConstMetric(inOutage, prometheus.GaugeValue, boolValue(s.InOutage), s.SourceURL)
	ch <- prometheus.MustNewConstMetric(minutesUntil, prometheus.GaugeValue, float64(s.MinutesUntil), s.SourceURL)
	ch <- prometheus.MustNewConstMetric(pretrigger, prometheus.GaugeValue, boolValue(s.Pretrigger), s.SourceURL)
	ch <- prometheus.MustNewConstMetric(intervals, prometheus.GaugeValue, float64(len(s.Intervals)), s.SourceURL)
	if s.NextChangeAt != nil {
		ch <- prometheus.MustNewConstMetric(nextChange, prometheus.GaugeValue, float64(s.NextChangeAt.Unix()), s.SourceURL, string(s.NextChangeKind))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
