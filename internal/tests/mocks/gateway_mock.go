package mocks

import (
	"context"
	"sync"

	"megbot/internal/models"
)

// GatewayMock stands in for the chat server client. Unset funcs succeed.
type GatewayMock struct {
	SendMessageFunc      func(ctx context.Context, content, sessionID, model string) (*models.MessageResponse, error)
	SaveCredentialFunc   func(ctx context.Context, secret, provider string) (*models.StatusResponse, error)
	DeleteCredentialFunc func(ctx context.Context, provider string) (*models.StatusResponse, error)
	ListCredentialsFunc  func(ctx context.Context) ([]models.CredentialInfo, error)
	ClearHistoryFunc     func(ctx context.Context) (*models.StatusResponse, error)
	SyncHistoryFunc      func(ctx context.Context, sessionID string, turns []models.Turn) (*models.StatusResponse, error)

	mu    sync.Mutex
	calls []string
}

func (m *GatewayMock) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Calls lists invoked methods in order.
func (m *GatewayMock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Count returns how many times name was invoked.
func (m *GatewayMock) Count(name string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (m *GatewayMock) SendMessage(ctx context.Context, content, sessionID, model string) (*models.MessageResponse, error) {
	m.record("SendMessage")
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, content, sessionID, model)
	}
	return &models.MessageResponse{Response: "ok"}, nil
}

func (m *GatewayMock) SaveCredential(ctx context.Context, secret, provider string) (*models.StatusResponse, error) {
	m.record("SaveCredential")
	if m.SaveCredentialFunc != nil {
		return m.SaveCredentialFunc(ctx, secret, provider)
	}
	return &models.StatusResponse{Status: models.StatusSuccess}, nil
}

func (m *GatewayMock) DeleteCredential(ctx context.Context, provider string) (*models.StatusResponse, error) {
	m.record("DeleteCredential")
	if m.DeleteCredentialFunc != nil {
		return m.DeleteCredentialFunc(ctx, provider)
	}
	return &models.StatusResponse{Status: models.StatusSuccess}, nil
}

func (m *GatewayMock) ListCredentials(ctx context.Context) ([]models.CredentialInfo, error) {
	m.record("ListCredentials")
	if m.ListCredentialsFunc != nil {
		return m.ListCredentialsFunc(ctx)
	}
	return []models.CredentialInfo{}, nil
}

func (m *GatewayMock) ClearHistory(ctx context.Context) (*models.StatusResponse, error) {
	m.record("ClearHistory")
	if m.ClearHistoryFunc != nil {
		return m.ClearHistoryFunc(ctx)
	}
	return &models.StatusResponse{Status: models.StatusSuccess}, nil
}

func (m *GatewayMock) SyncHistory(ctx context.Context, sessionID string, turns []models.Turn) (*models.StatusResponse, error) {
	m.record("SyncHistory")
	if m.SyncHistoryFunc != nil {
		return m.SyncHistoryFunc(ctx, sessionID, turns)
	}
	return &models.StatusResponse{Status: models.StatusSuccess}, nil
}
