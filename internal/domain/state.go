package domain

// CallState models the call lifecycle. Exactly one holds at a time.
type CallState string

const (
	CallStateIdle         CallState = "idle"
	CallStateProvisioning CallState = "provisioning"
	CallStateConnecting   CallState = "connecting"
	CallStateConnected    CallState = "connected"
	CallStateEnding       CallState = "ending"
	CallStateAnalyzing    CallState = "analyzing"
	CallStateResolved     CallState = "resolved"
	CallStateTimedOut     CallState = "timed_out"
	CallStateFailed       CallState = "failed"
)

// Terminal reports whether a fresh attempt may start from this state.
func (s CallState) Terminal() bool {
	switch s {
	case CallStateIdle, CallStateResolved, CallStateTimedOut, CallStateFailed:
		return true
	default:
		return false
	}
}

// CallStateReason provides a structured reason for state transitions.
type CallStateReason string

const (
	CallReasonReady                CallStateReason = "ready"
	CallReasonIdentityResolved     CallStateReason = "identity_resolved"
	CallReasonCredentialIssued     CallStateReason = "credential_issued"
	CallReasonTransportConnected   CallStateReason = "transport_connected"
	CallReasonUserEnded            CallStateReason = "user_ended"
	CallReasonAnalysisStarted      CallStateReason = "analysis_started"
	CallReasonAnalysisReady        CallStateReason = "analysis_ready"
	CallReasonAnalysisTimedOut     CallStateReason = "analysis_timed_out"
	CallReasonAnalysisUnreachable  CallStateReason = "analysis_unreachable"
	CallReasonIdentityMissing      CallStateReason = "identity_missing"
	CallReasonProvisioningFailed   CallStateReason = "provisioning_failed"
	CallReasonConnectFailed        CallStateReason = "connect_failed"
	CallReasonUnexpectedDisconnect CallStateReason = "unexpected_disconnect"
	CallReasonTornDown             CallStateReason = "torn_down"
)

// RecoveryAction is a forward action offered with every terminal state.
type RecoveryAction string

const (
	ActionRetry      RecoveryAction = "retry"
	ActionHome       RecoveryAction = "home"
	ActionDashboard  RecoveryAction = "dashboard"
	ActionViewResult RecoveryAction = "view_result"
)

// Route is what the routing layer receives when the machine settles.
type Route struct {
	Target   string           `json:"target,omitempty"`
	ResultID string           `json:"result_id,omitempty"`
	Message  string           `json:"message,omitempty"`
	Actions  []RecoveryAction `json:"actions,omitempty"`
}

// Status summarizes the controller for a UI.
type Status struct {
	State               CallState       `json:"state"`
	Reason              CallStateReason `json:"reason,omitempty"`
	Room                RoomID          `json:"room,omitempty"`
	AttemptID           string          `json:"attempt_id,omitempty"`
	Participants        []Participant   `json:"participants,omitempty"`
	Counterpart         *Participant    `json:"counterpart,omitempty"`
	CounterpartSpeaking bool            `json:"counterpart_speaking"`
	LocalSpeaking       bool            `json:"local_speaking"`
	Assistant           AssistantState  `json:"assistant_state,omitempty"`
	Waiting             bool            `json:"waiting"`
	Mute                MuteState       `json:"mute"`
	Poll                *PollBudget     `json:"poll,omitempty"`
	Result              *AnalysisResult `json:"result,omitempty"`
	Route               *Route          `json:"route,omitempty"`
}
