package models

// SubmissionPhase is the lifecycle state of one outbound message.
type SubmissionPhase string

const (
	PhaseIdle               SubmissionPhase = "idle"
	PhaseAwaitingCredential SubmissionPhase = "awaiting_credential"
	PhaseSubmitting         SubmissionPhase = "submitting"
	PhaseFulfilled          SubmissionPhase = "fulfilled"
	PhaseFailed             SubmissionPhase = "failed"
)

// SubmitStatus classifies the result of a submit call for presentation code.
type SubmitStatus string

const (
	SubmitEmpty              SubmitStatus = "empty"
	SubmitCredentialRequired SubmitStatus = "credential_required"
	SubmitFulfilled          SubmitStatus = "fulfilled"
	SubmitFailed             SubmitStatus = "failed"
)

// SubmitOutcome is returned to the frontend after a submission settles.
// Notice carries the assistant-styled message to display on failure; it is
// not recorded in the session.
type SubmitOutcome struct {
	Status    SubmitStatus    `json:"status"`
	Phase     SubmissionPhase `json:"phase"`
	SessionID string          `json:"sessionId,omitempty"`
	UserTurn  *Turn           `json:"userTurn,omitempty"`
	Reply     *Turn           `json:"reply,omitempty"`
	Notice    string          `json:"notice,omitempty"`
}
