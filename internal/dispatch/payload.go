package dispatch

// Action is the outbound action verb understood by the workflow endpoint.
type Action string

// Supported actions.
const (
	ActionCreateAssistant Action = "create_assistant"
	ActionInitiateCall    Action = "initiate_call"
	ActionStartCampaign   Action = "start_campaign"
	ActionPauseCampaign   Action = "pause_campaign"
	ActionStopCampaign    Action = "stop_campaign"
	ActionCreateCampaign  Action = "create_campaign"
)

// schemaVersion marks the AdditionalData layout so the workflow side can
// handle payloads from older clients.
const schemaVersion = "sb-1"

// AdditionalData carries resolved identity and diagnostics. It replaces
// the open key/value bag of earlier clients with a documented, versioned
// record; optional fields are omitted when empty.
type AdditionalData struct {
	AssistantID      string `json:"assistant_id,omitempty"`
	AssistantLocalID uint   `json:"assistant_local_id,omitempty"`
	AssistantName    string `json:"assistant_name,omitempty"`
	ResolutionSource string `json:"resolution_source,omitempty"`
	Degraded         bool   `json:"degraded_resolution,omitempty"`
	ClientCount      int    `json:"client_count,omitempty"`
	Progress         int    `json:"progress,omitempty"`
	CallerNumber     string `json:"caller_number,omitempty"`
	Timestamp        string `json:"timestamp"`
	SchemaVersion    string `json:"schema_version"`
}

// CallConfig is the model/voice pair attached to call actions.
type CallConfig struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
}

// Payload is the outbound message POSTed to the workflow endpoint.
type Payload struct {
	Action         Action         `json:"action"`
	CampaignID     uint           `json:"campaignId,omitempty"`
	ClientID       uint           `json:"clientId,omitempty"`
	ClientName     string         `json:"clientName,omitempty"`
	ClientPhone    string         `json:"clientPhone,omitempty"`
	OwnerID        string         `json:"ownerId,omitempty"`
	Name           string         `json:"name,omitempty"`
	SystemPrompt   string         `json:"systemPrompt,omitempty"`
	FirstMessage   string         `json:"firstMessage,omitempty"`
	AdditionalData AdditionalData `json:"additionalData"`
	CallConfig     *CallConfig    `json:"callConfig,omitempty"`
}
