package domain

// Role tags a participant relative to this client.
type Role string

const (
	RoleLocal       Role = "local"
	RoleCounterpart Role = "counterpart"
	RoleObserver    Role = "observer"
)

const (
	LocalDisplayName       = "You"
	CounterpartDisplayName = "VC Persona"
)

// Participant represents one party's presence and media state in a session.
// No transport or lifecycle logic here.
type Participant struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	IsLocal     bool   `json:"is_local"`
	IsSpeaking  bool   `json:"is_speaking"`
	HasVideo    bool   `json:"has_video"`
	AudioMuted  bool   `json:"audio_muted"`
	// JoinSeq orders joins; the most recent non-local join wins the counterpart role.
	JoinSeq uint64 `json:"-"`
}

// Label is what a UI shows for the participant.
func (p Participant) Label() string {
	if p.IsLocal {
		return LocalDisplayName
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return CounterpartDisplayName
}

// MuteState belongs to the media control surface.
type MuteState struct {
	Pending bool `json:"pending"`
	Muted   bool `json:"muted"`
}

// AssistantState is the aggregate voice state reported for a synthesized counterpart.
type AssistantState string

const (
	AssistantIdle       AssistantState = "idle"
	AssistantListening  AssistantState = "listening"
	AssistantThinking   AssistantState = "thinking"
	AssistantSpeaking   AssistantState = "speaking"
	AssistantConnecting AssistantState = "connecting"
)

type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

type ConnectionState string

const (
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionReconnecting ConnectionState = "reconnecting"
	ConnectionDisconnected ConnectionState = "disconnected"
)
