// Package slack implements the notify.Notifier interface for Slack.
package slack

import (
	"context"
	"fmt"

	"github.com/mkowalczyk/switchboard/internal/notify"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts events to a Slack channel.
type Notifier struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("slack: bot token is required")
		}
		client = slackapi.New(opts.BotToken)
	}
	return &Notifier{client: client, channelID: opts.ChannelID}, nil
}

// Notify posts the event as a colored attachment.
func (n *Notifier) Notify(ctx context.Context, evt notify.Event) error {
	att := slackapi.Attachment{
		Title:    evt.Title,
		Text:     evt.Body,
		Color:    severityColor(evt.Severity),
		Fallback: evt.Title,
	}
	for _, f := range evt.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channelID, slackapi.MsgOptionAttachments(att))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// severityColor maps an event severity to a Slack sidebar color.
func severityColor(severity string) string {
	switch severity {
	case notify.SeverityError:
		return "danger"
	case notify.SeverityWarning:
		return "warning"
	default:
		return "#439fe0"
	}
}
