package slack

import (
	"context"
	"fmt"
	"testing"

	"github.com/mkowalczyk/switchboard/internal/notify"
	slackapi "github.com/slack-go/slack"
)

type mockClient struct {
	channels []string
	options  [][]slackapi.MsgOption
	err      error
}

func (m *mockClient) PostMessageContext(_ context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.channels = append(m.channels, channelID)
	m.options = append(m.options, options)
	if m.err != nil {
		return "", "", m.err
	}
	return channelID, "123.456", nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Error("expected error for missing channel ID")
	}
	if _, err := New(Opts{ChannelID: "C1"}); err == nil {
		t.Error("expected error for missing bot token without injected client")
	}
	if _, err := New(Opts{ChannelID: "C1", Client: &mockClient{}}); err != nil {
		t.Errorf("New() with injected client = %v", err)
	}
}

func TestNotify_PostsToChannel(t *testing.T) {
	client := &mockClient{}
	n, err := New(Opts{ChannelID: "C1", Client: client})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	err = n.Notify(context.Background(), notify.Event{
		Title:    "dispatch rejected",
		Body:     "stop_campaign for campaign 4 timed out",
		Severity: notify.SeverityWarning,
		Fields:   []notify.Field{{Name: "action", Value: "stop_campaign"}},
	})
	if err != nil {
		t.Fatalf("Notify() = %v", err)
	}
	if len(client.channels) != 1 || client.channels[0] != "C1" {
		t.Errorf("channels = %v, want [C1]", client.channels)
	}
}

func TestNotify_Error(t *testing.T) {
	client := &mockClient{err: fmt.Errorf("channel_not_found")}
	n, _ := New(Opts{ChannelID: "C1", Client: client})

	if err := n.Notify(context.Background(), notify.Event{Title: "t"}); err == nil {
		t.Error("expected error from failed post")
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity string
		want     string
	}{
		{notify.SeverityError, "danger"},
		{notify.SeverityWarning, "warning"},
		{notify.SeverityInfo, "#439fe0"},
		{"", "#439fe0"},
	}
	for _, tt := range tests {
		if got := severityColor(tt.severity); got != tt.want {
			t.Errorf("severityColor(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
