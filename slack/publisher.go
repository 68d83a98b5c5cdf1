package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lagren/statusguard/monitor"
)

// Publisher posts monitor events to one channel.
type Publisher struct {
	client  *Client
	channel string
}

func NewPublisher(client *Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, ev monitor.Event) error {
	msg, err := EventMessage(ev)
	if err != nil {
		return err
	}

	msg.Channel = p.channel

	return p.client.PostMessage(ctx, msg)
}

// EventMessage renders ev the way it appears in the channel.
func EventMessage(ev monitor.Event) (Message, error) {
	switch ev.Kind {
	case monitor.ServiceRecovered:
		msg := Message{
			Text:  fmt.Sprintf("*%s is back online!*", ev.Service),
			Color: ColorGreen,
		}
		if ev.Downtime > 0 {
			offline := strings.TrimSpace(humanize.RelTime(ev.At.Add(-ev.Downtime), ev.At, "", ""))
			msg.Blocks = []Block{Context("Offline for " + offline)}
		}
		return msg, nil
	case monitor.ServiceDown:
		return Message{
			Text:   fmt.Sprintf("*%s is offline!*", ev.Service),
			Color:  ColorRed,
			Blocks: RemediationButtons(ev.Service, ev.Actions),
		}, nil
	case monitor.AutoPublished:
		return Message{
			Text:  fmt.Sprintf("*Automatically published: %s is potentially degraded*", ev.Service),
			Color: ColorOrange,
		}, nil
	default:
		return Message{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}
