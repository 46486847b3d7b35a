// Package discord implements the notify.Notifier interface for Discord.
// Events are delivered over the REST API; no gateway connection is needed.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/mkowalczyk/switchboard/internal/notify"
)

// Embed sidebar colors per severity.
const (
	colorInfo    = 0x439fe0
	colorWarning = 0xffa500
	colorError   = 0xd9534f
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts events to a Discord channel.
type Notifier struct {
	session   session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	s := opts.Session
	if s == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		real, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		s = real
	}
	return &Notifier{session: s, channelID: opts.ChannelID}, nil
}

// Notify posts the event as an embed.
func (n *Notifier) Notify(_ context.Context, evt notify.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		Description: evt.Body,
		Color:       severityColor(evt.Severity),
	}
	for _, f := range evt.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// severityColor maps an event severity to an embed color.
func severityColor(severity string) int {
	switch severity {
	case notify.SeverityError:
		return colorError
	case notify.SeverityWarning:
		return colorWarning
	default:
		return colorInfo
	}
}
