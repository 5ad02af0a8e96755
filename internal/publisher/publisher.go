// Package publisher forwards schedule snapshots to message brokers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/clambin/energyua-monitor/internal/schedule"
)

// Publisher sends a formatted snapshot to a broker.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Payload is the message sent for each snapshot.
type Payload struct {
	PowerOn        bool     `json:"power_on"`
	InOutage       bool     `json:"in_outage"`
	Pretrigger     bool     `json:"pretrigger"`
	MinutesUntil   int      `json:"minutes_until"`
	CountdownHM    string   `json:"countdown_hm"`
	NextChangeAt   string   `json:"next_change_at,omitempty"`
	NextChangeKind string   `json:"next_change_kind,omitempty"`
	Periods        []string `json:"periods"`
	SourceURL      string   `json:"source_url"`
	Timestamp      string   `json:"timestamp"`
}

// FormatPayload creates the JSON payload for a snapshot.
func FormatPayload(s schedule.Snapshot) ([]byte, error) {
	payload := Payload{
		PowerOn:        s.PowerOn(),
		InOutage:       s.InOutage,
		Pretrigger:     s.Pretrigger,
		MinutesUntil:   s.MinutesUntil,
		CountdownHM:    s.CountdownHM,
		NextChangeKind: string(s.NextChangeKind),
		Periods:        make([]string, 0, len(s.Intervals)),
		SourceURL:      s.SourceURL,
		Timestamp:      s.EvaluatedAt.Format(time.RFC3339),
	}
	if s.NextChangeAt != nil {
		payload.NextChangeAt = s.NextChangeAt.Format(time.RFC3339)
	}
	for _, i := range s.Intervals {
		payload.Periods = append(payload.Periods, i.Label)
	}
	return json.Marshal(payload)
}

type Source interface {
	Subscribe() chan schedule.Snapshot
	Unsubscribe(chan schedule.Snapshot)
}

// Forwarder sends every snapshot published by Source to each of the Targets.
type Forwarder struct {
	Source  Source
	Targets map[string]Publisher
	Logger  *slog.Logger
}

func (f *Forwarder) Run(ctx context.Context) error {
	f.Logger.Debug("started", slog.Int("targets", len(f.Targets)))
	defer f.Logger.Debug("stopped")

	ch := f.Source.Subscribe()
	defer f.Source.Unsubscribe(ch)

	defer func() {
		for name, target := range f.Targets {
			if err := target.Close(); err != nil {
				f.Logger.Warn("failed to close publisher", slog.String("target", name), slog.Any("err", err))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-ch:
			if err := f.forward(ctx, s); err != nil {
				f.Logger.Warn("failed to forward snapshot", slog.Any("err", err))
			}
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, s schedule.Snapshot) error {
	payload, err := FormatPayload(s)
	if err != nil {
		return err
	}
	var errs []error
	for name, target := range f.Targets {
		if err := target.Publish(ctx, payload); err != nil {
			errs = append(errs, errors.New(name+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}
