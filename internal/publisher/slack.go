package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/slack-go/slack"
)

type SlackSender interface {
	PostMessageContext(context.Context, string, ...slack.MsgOption) (string, string, error)
	GetConversationsContext(context.Context, *slack.GetConversationsParameters) ([]slack.Channel, string, error)
}

// SlackPublisher notifies every joined Slack channel when the power state changes or the pretrigger fires.
// The first payload only records the state.
type SlackPublisher struct {
	SlackSender
	Logger *slog.Logger
	lock   sync.Mutex
	last   *Payload
}

func NewSlackPublisher(token string, logger *slog.Logger) *SlackPublisher {
	return &SlackPublisher{SlackSender: slack.New(token), Logger: logger}
}

func (p *SlackPublisher) Publish(ctx context.Context, payload []byte) error {
	var current Payload
	if err := json.Unmarshal(payload, &current); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	p.lock.Lock()
	previous := p.last
	p.last = &current
	p.lock.Unlock()

	if previous == nil {
		return nil
	}
	var msgs []slack.Attachment
	if previous.InOutage != current.InOutage {
		msgs = append(msgs, stateChanged(current))
	}
	if !previous.Pretrigger && current.Pretrigger {
		msgs = append(msgs, pretriggered(current))
	}
	if len(msgs) == 0 {
		return nil
	}

	channels, err := p.getChannels(ctx)
	if err != nil {
		return fmt.Errorf("get channels: %w", err)
	}
	var errs []error
	for _, channel := range channels {
		p.Logger.Debug("notifying on slack", "channel", channel.Name)
		if _, _, err = p.PostMessageContext(ctx, channel.ID, slack.MsgOptionAttachments(msgs...)); err != nil {
			errs = append(errs, fmt.Errorf("post to %s: %w", channel.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *SlackPublisher) Close() error {
	return nil
}

func (p *SlackPublisher) getChannels(ctx context.Context) ([]slack.Channel, error) {
	var joinedChannels []slack.Channel
	var cursor string
	for {
		channels, nextCursor, err := p.GetConversationsContext(ctx, &slack.GetConversationsParameters{Cursor: cursor, Limit: 100})
		if err != nil {
			return nil, err
		}
		for _, channel := range channels {
			if channel.IsMember && !channel.IsArchived {
				joinedChannels = append(joinedChannels, channel)
			}
		}
		if cursor = nextCursor; cursor == "" {
			break
		}
	}
	return joinedChannels, nil
}

func stateChanged(p Payload) slack.Attachment {
	if p.InOutage {
		return slack.Attachment{Color: "danger", Title: "Power is off", Text: nextChange(p)}
	}
	return slack.Attachment{Color: "good", Title: "Power is back on", Text: nextChange(p)}
}

func pretriggered(p Payload) slack.Attachment {
	title := "Outage starts in " + p.CountdownHM
	if p.InOutage {
		title = "Power returns in " + p.CountdownHM
	}
	return slack.Attachment{Color: "warning", Title: title, Text: nextChange(p)}
}

func nextChange(p Payload) string {
	if p.NextChangeAt == "" {
		return "next change unknown"
	}
	return "next change (" + p.NextChangeKind + ") at " + p.NextChangeAt
}
