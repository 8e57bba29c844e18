package models

// Request and response bodies exchanged between the desktop client and the
// chat server.

type MessageRequest struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
	Model     string `json:"model,omitempty"`
}

type MessageResponse struct {
	Response string `json:"response"`
}

type SaveCredentialRequest struct {
	Secret   string `json:"secret"`
	Provider string `json:"provider"`
}

type DeleteCredentialRequest struct {
	Provider string `json:"provider"`
}

// CredentialInfo describes a stored provider secret without revealing it.
type CredentialInfo struct {
	Provider    string `json:"provider"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// StatusResponse is the generic acknowledgement. Status is "success" or
// "error".
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// HistoryMessage is one entry of the server-side conversation history.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SyncHistoryRequest struct {
	SessionID string           `json:"sessionId"`
	Messages  []HistoryMessage `json:"messages"`
}

// HealthResponse is returned by the server's health check.
type HealthResponse struct {
	Status string `json:"status"`
	Models int    `json:"models"`
}
