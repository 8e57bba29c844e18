// Package server is the chat-completion HTTP API the desktop client talks to.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"megbot/internal/models"
	"megbot/internal/services"
)

// Completer answers one user message for a client scope.
type Completer interface {
	Complete(ctx context.Context, scope, content, modelKey string) (string, error)
}

// HistoryStore is the server-side conversation memory.
type HistoryStore interface {
	Clear(scope string)
	Replace(scope string, msgs []models.HistoryMessage) int
}

// Vault stores provider secrets per client scope.
type Vault interface {
	StoreApiKey(scope, provider string, apiKey []byte) error
	DeleteApiKey(scope, provider string) error
	ListApiKeys(scope string) ([]models.CredentialInfo, error)
}

type Options struct {
	CORSOrigins []string
	// RateLimit is requests per second per client scope. Zero disables it.
	RateLimit float64
	RateBurst int
}

type Server struct {
	completion Completer
	history    HistoryStore
	vault      Vault
	catalog    services.ModelCatalogService
	log        *zap.Logger
	limiter    *scopeLimiter
	handler    http.Handler
}

func New(completion Completer, history HistoryStore, vault Vault, catalog services.ModelCatalogService, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		completion: completion,
		history:    history,
		vault:      vault,
		catalog:    catalog,
		log:        log,
	}
	if opts.RateLimit > 0 {
		s.limiter = newScopeLimiter(opts.RateLimit, opts.RateBurst, 10*time.Minute)
	}
	s.handler = s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverPanic, s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withScope, s.rateLimit)
	api.HandleFunc("/message", s.handleMessage).Methods(http.MethodPost)
	api.HandleFunc("/save_api_key", s.handleSaveCredential).Methods(http.MethodPost)
	api.HandleFunc("/delete_api_key", s.handleDeleteCredential).Methods(http.MethodPost)
	api.HandleFunc("/api_keys", s.handleListCredentials).Methods(http.MethodGet)
	api.HandleFunc("/clear_history", s.handleClearHistory).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/sync_history", s.handleSyncHistory).Methods(http.MethodPost)
	api.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", TokenHeader},
		MaxAge:         300,
	})
	return c.Handler(r)
}

// ServeHTTP lets the server be mounted directly on an http.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background housekeeping.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
