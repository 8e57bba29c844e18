package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/logger"
	gormlogger "gorm.io/gorm/logger"

	"megbot/internal/config"
	"megbot/internal/database"
	"megbot/internal/events"
	"megbot/internal/gateway"
	"megbot/internal/models"
	"megbot/internal/repositories"
	"megbot/internal/services"
)

// App owns the desktop wiring and exposes preference and catalog calls to
// the webview. Chat and credential calls live on their own bound structs.
type App struct {
	ctx     context.Context
	log     logger.Logger
	dbClose func() error

	prefs         services.PreferenceStore
	conversations services.ConversationStore
	catalog       services.ModelCatalogService
	controller    *services.ChatController
	credentials   *services.CredentialSettings
}

// NewApp opens the database and wires the stores, the gateway and the bound
// services.
func NewApp(cfg *config.Config, log logger.Logger, emit events.Emitter) (*App, error) {
	db, err := database.Init(database.Config{
		Path:     cfg.DBPath,
		LogLevel: gormlogger.Warn,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	app, err := newApp(cfg, log, repositories.NewRecordRepository(db), emit)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		app.dbClose = sqlDB.Close
	}
	return app, nil
}

func newApp(cfg *config.Config, log logger.Logger, repo repositories.RecordRepository, emit events.Emitter) (*App, error) {
	target, err := services.ParseReplyTarget(cfg.ReplyTarget)
	if err != nil {
		return nil, err
	}
	catalog, err := services.NewModelCatalogService()
	if err != nil {
		return nil, err
	}
	token, err := clientToken(context.Background(), repo)
	if err != nil {
		return nil, err
	}
	gw, err := gateway.New(cfg.APIURL, gateway.WithToken(token), gateway.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}

	stores := services.NewStores(repo, log)
	prefs, conversations := stores.Preferences, stores.Conversations

	return &App{
		ctx:           context.Background(),
		log:           log,
		prefs:         prefs,
		conversations: conversations,
		catalog:       catalog,
		controller: services.NewChatController(conversations, prefs, gw, log, services.ChatControllerConfig{
			ReplyTarget:    target,
			RequestTimeout: cfg.RequestTimeout,
			Emit:           emit,
		}),
		credentials: services.NewCredentialSettings(prefs, gw, log, cfg.RequestTimeout),
	}, nil
}

// clientToken returns the persisted install token, creating it on first run.
func clientToken(ctx context.Context, repo repositories.RecordRepository) (string, error) {
	token, ok, err := repo.Load(ctx, repositories.ClientTokenKey)
	if err != nil {
		return "", fmt.Errorf("load client token: %w", err)
	}
	if ok && strings.TrimSpace(token) != "" {
		return token, nil
	}
	token = uuid.NewString()
	if err := repo.Save(ctx, repositories.ClientTokenKey, token); err != nil {
		return "", fmt.Errorf("save client token: %w", err)
	}
	return token, nil
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.controller.Startup(ctx)
	a.credentials.Startup(ctx)
	a.log.Info("MegBot started")
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown(ctx context.Context) {
	a.controller.Shutdown()
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			a.log.Error(fmt.Sprintf("failed to close database: %v", err))
		}
	}
}

func (a *App) GetPreferences() models.Preferences {
	return a.prefs.Preferences()
}

func (a *App) SetDarkMode(enabled bool) models.Preferences {
	return a.prefs.Update(models.PreferencesPatch{DarkMode: &enabled})
}

func (a *App) SetSidebarCollapsed(collapsed bool) models.Preferences {
	return a.prefs.Update(models.PreferencesPatch{SidebarCollapsed: &collapsed})
}

// SetModel selects a catalog model. Unknown keys leave the preference alone.
func (a *App) SetModel(key string) (models.Preferences, error) {
	mdl, err := a.catalog.GetModel(key)
	if err != nil {
		return a.prefs.Preferences(), err
	}
	return a.prefs.Update(models.PreferencesPatch{Model: &mdl.Key}), nil
}

func (a *App) ResetPreferences() models.Preferences {
	return a.prefs.Reset()
}

func (a *App) ListModels() []models.LLMModelGroup {
	return a.catalog.ListModelGroups()
}
