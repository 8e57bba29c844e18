package models

// CredentialState describes the credential entry field in the settings panel.
type CredentialState int

const (
	// CredentialNotConfigured means no credential has been saved for the provider.
	CredentialNotConfigured CredentialState = iota
	// CredentialConfiguredMasked means a credential is saved server-side and
	// the field shows a mask instead of the secret.
	CredentialConfiguredMasked
	// CredentialPendingSave means the user typed a plaintext secret that has
	// not been sent yet.
	CredentialPendingSave
)

func (s CredentialState) String() string {
	switch s {
	case CredentialNotConfigured:
		return "not_configured"
	case CredentialConfiguredMasked:
		return "configured_masked"
	case CredentialPendingSave:
		return "pending_save"
	}
	return "unknown"
}

// MarshalText lets the state travel to the frontend as a string.
func (s CredentialState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CredentialView is what the settings panel renders.
type CredentialView struct {
	State       CredentialState `json:"state"`
	Provider    string          `json:"provider"`
	Masked      bool            `json:"masked"`
	ActionLabel string          `json:"actionLabel"`
}

// CredentialResult is the feedback shown after a save or provider change.
type CredentialResult struct {
	OK                bool           `json:"ok"`
	Message           string         `json:"message"`
	NeedsConfirmation bool           `json:"needsConfirmation,omitempty"`
	View              CredentialView `json:"view"`
}
