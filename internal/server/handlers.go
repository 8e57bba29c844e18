package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"megbot/internal/llm/client"
	"megbot/internal/models"
	"megbot/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxContentLen  = 32000
	maxSessionLen  = 128
	maxSyncEntries = 1000

	msgCredentialMissing = "API key not configured. Please add your API key in the settings panel."
	msgKeySaved          = "API key saved successfully"
	msgKeySaveFailed     = "Failed to save API key"
	msgKeyDeleted        = "API key deleted"
	msgKeyDeleteFailed   = "Failed to delete API key"
	msgHistoryCleared    = "Conversation history cleared"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, models.StatusResponse{
		Status:  models.StatusError,
		Message: r.Method + " is not allowed on " + r.URL.Path,
	})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func providerRule() validation.Rule {
	providers := client.SupportedProviders()
	allowed := make([]any, len(providers))
	for i, p := range providers {
		allowed[i] = p
	}
	return validation.In(allowed...)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req models.MessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, models.MessageResponse{Response: "Invalid request body"})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Content, validation.Required, validation.Length(1, maxContentLen)),
		validation.Field(&req.SessionID, validation.Length(0, maxSessionLen)),
	); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, models.MessageResponse{Response: err.Error()})
		return
	}

	scope := scopeFrom(r.Context())
	reply, err := s.completion.Complete(r.Context(), scope, req.Content, req.Model)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.MessageResponse{Response: reply})
	case errors.Is(err, services.ErrCredentialMissing):
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Response: msgCredentialMissing})
	case errors.Is(err, services.ErrUnknownModel):
		writeJSON(w, http.StatusUnprocessableEntity, models.MessageResponse{Response: err.Error()})
	default:
		s.log.Error("message failed",
			zap.String("session_id", req.SessionID),
			zap.String("model", req.Model),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.MessageResponse{
			Response: "Sorry, an error occurred: " + err.Error(),
		})
	}
}

// handleSaveCredential reports application outcomes with HTTP 200 and a
// status field.
func (s *Server) handleSaveCredential(w http.ResponseWriter, r *http.Request) {
	var req models.SaveCredentialRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusError, Message: "Invalid request body"})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Secret, validation.Required),
		validation.Field(&req.Provider, validation.Required, providerRule()),
	); err != nil {
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusError, Message: err.Error()})
		return
	}

	if err := s.vault.StoreApiKey(scopeFrom(r.Context()), req.Provider, []byte(req.Secret)); err != nil {
		s.log.Error("store credential", zap.String("provider", req.Provider), zap.Error(err))
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusError, Message: msgKeySaveFailed})
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusSuccess, Message: msgKeySaved})
}

// handleDeleteCredential follows the save_api_key convention: HTTP 200 with a
// status field. Deleting a key that was never stored succeeds.
func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteCredentialRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusError, Message: "Invalid request body"})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Provider, validation.Required, providerRule()),
	); err != nil {
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusError, Message: err.Error()})
		return
	}

	if err := s.vault.DeleteApiKey(scopeFrom(r.Context()), req.Provider); err != nil {
		s.log.Error("delete credential", zap.String("provider", req.Provider), zap.Error(err))
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusError, Message: msgKeyDeleteFailed})
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusSuccess, Message: msgKeyDeleted})
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	list, err := s.vault.ListApiKeys(scopeFrom(r.Context()))
	if err != nil {
		s.log.Error("list credentials", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.StatusResponse{Status: models.StatusError, Message: "Failed to list API keys"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.history.Clear(scopeFrom(r.Context()))
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.StatusSuccess, Message: msgHistoryCleared})
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	var req models.SyncHistoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, models.StatusResponse{Status: models.StatusError, Message: "Invalid request body"})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.SessionID, validation.Length(0, maxSessionLen)),
		validation.Field(&req.Messages, validation.Length(0, maxSyncEntries)),
	); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, models.StatusResponse{Status: models.StatusError, Message: err.Error()})
		return
	}

	n := s.history.Replace(scopeFrom(r.Context()), req.Messages)
	s.log.Debug("history synced", zap.String("session_id", req.SessionID), zap.Int("messages", n))
	writeJSON(w, http.StatusOK, models.StatusResponse{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("%d messages synced", n),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.ListModelGroups())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	count := 0
	for _, g := range s.catalog.ListModelGroups() {
		count += len(g.Models)
	}
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Models: count})
}
