package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestAssistant_Fields(t *testing.T) {
	typ := reflect.TypeOf(Assistant{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "RemoteID", "size:64")
	assertGormTag(t, typ, "RemoteID", "index")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Status", "size:16")
	assertGormTag(t, typ, "Status", "default:ready")
	assertGormTag(t, typ, "SystemPrompt", "type:text")
	assertGormTag(t, typ, "FirstMessage", "type:text")
	assertGormTag(t, typ, "OwnerID", "index")
}

func TestCampaign_Fields(t *testing.T) {
	typ := reflect.TypeOf(Campaign{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Status", "default:draft")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "GroupID", "index")
}

func TestClient_Fields(t *testing.T) {
	typ := reflect.TypeOf(Client{})

	assertGormTag(t, typ, "Phone", "size:32")
	assertGormTag(t, typ, "Phone", "not null")
	assertGormTag(t, typ, "GroupID", "index")
}

func TestDispatchLog_Fields(t *testing.T) {
	typ := reflect.TypeOf(DispatchLog{})

	assertGormTag(t, typ, "Action", "size:32")
	assertGormTag(t, typ, "Action", "index")
	assertGormTag(t, typ, "Accepted", "default:false")
	assertGormTag(t, typ, "Error", "type:text")
}

func TestStatusConstants(t *testing.T) {
	if StatusReady != "ready" || StatusPending != "pending" || StatusFailed != "failed" {
		t.Errorf("status constants = %q/%q/%q", StatusReady, StatusPending, StatusFailed)
	}
}

func TestCampaignStatusConstants(t *testing.T) {
	want := []string{"draft", "active", "paused", "stopped"}
	got := []string{CampaignDraft, CampaignActive, CampaignPaused, CampaignStopped}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("campaign status[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
