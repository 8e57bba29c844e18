package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"megbot/internal/events"
	"megbot/internal/gateway"
	"megbot/internal/models"
)

const (
	CredentialPromptNotice = "API key required to use the chatbot. Please add your API key in the settings panel."
	ApologyNotice          = "Sorry, an error occurred. Please try again."
)

// ChatGateway is the slice of the chat server client the desktop uses.
type ChatGateway interface {
	SendMessage(ctx context.Context, content, sessionID, model string) (*models.MessageResponse, error)
	SaveCredential(ctx context.Context, secret, provider string) (*models.StatusResponse, error)
	DeleteCredential(ctx context.Context, provider string) (*models.StatusResponse, error)
	ListCredentials(ctx context.Context) ([]models.CredentialInfo, error)
	ClearHistory(ctx context.Context) (*models.StatusResponse, error)
	SyncHistory(ctx context.Context, sessionID string, turns []models.Turn) (*models.StatusResponse, error)
}

// ReplyTarget selects the session an assistant reply is appended to when the
// user switched sessions while the request was in flight.
type ReplyTarget string

const (
	// ReplyToCurrent appends to whatever session is current on completion.
	ReplyToCurrent ReplyTarget = "reply-to-current"
	// ReplyToOrigin appends to the session the message was sent from.
	ReplyToOrigin ReplyTarget = "reply-to-origin"
)

func ParseReplyTarget(s string) (ReplyTarget, error) {
	switch t := ReplyTarget(strings.TrimSpace(strings.ToLower(s))); t {
	case "":
		return ReplyToCurrent, nil
	case ReplyToCurrent, ReplyToOrigin:
		return t, nil
	}
	return "", fmt.Errorf("unknown reply target %q", s)
}

type ChatControllerConfig struct {
	ReplyTarget    ReplyTarget
	RequestTimeout time.Duration
	Emit           events.Emitter
}

// ChatController drives message submission and session navigation. It is
// bound to the webview; results come back as return values and events.
type ChatController struct {
	conversations ConversationStore
	prefs         PreferenceStore
	gateway       ChatGateway
	log           logger.Logger
	emit          events.Emitter
	replyTarget   ReplyTarget
	timeout       time.Duration

	ctxMu sync.RWMutex
	ctx   context.Context

	inFlight atomic.Int32

	bgMu   sync.Mutex
	closed bool
	bg     sync.WaitGroup
}

func NewChatController(conversations ConversationStore, prefs PreferenceStore, gw ChatGateway, log logger.Logger, cfg ChatControllerConfig) *ChatController {
	if cfg.ReplyTarget == "" {
		cfg.ReplyTarget = ReplyToCurrent
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = gateway.DefaultTimeout
	}
	return &ChatController{
		conversations: conversations,
		prefs:         prefs,
		gateway:       gw,
		log:           log,
		emit:          events.Scoped(cfg.Emit),
		replyTarget:   cfg.ReplyTarget,
		timeout:       cfg.RequestTimeout,
		ctx:           context.Background(),
	}
}

// Startup selects the most recent session, or creates one when there is no
// history yet.
func (c *ChatController) Startup(ctx context.Context) {
	c.ctxMu.Lock()
	c.ctx = ctx
	c.ctxMu.Unlock()

	if c.conversations.CurrentSession() != nil {
		return
	}
	if sessions := c.conversations.Sessions(); len(sessions) > 0 {
		c.LoadSession(sessions[0].ID)
		return
	}
	c.NewSession()
}

// Shutdown waits for background history calls to finish. Calls started
// afterwards are skipped.
func (c *ChatController) Shutdown() {
	c.bgMu.Lock()
	c.closed = true
	c.bgMu.Unlock()
	c.bg.Wait()
}

func (c *ChatController) baseContext() context.Context {
	c.ctxMu.RLock()
	defer c.ctxMu.RUnlock()
	return c.ctx
}

// Submit sends one user message and waits for the reply.
func (c *ChatController) Submit(rawText string) models.SubmitOutcome {
	ctx := c.baseContext()

	if !c.prefs.HasCredential() {
		c.emit(ctx, events.ChatCredentialRequired, events.CredentialRequired(CredentialPromptNotice))
		return models.SubmitOutcome{Status: models.SubmitCredentialRequired, Phase: models.PhaseAwaitingCredential}
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		return models.SubmitOutcome{Status: models.SubmitEmpty, Phase: models.PhaseIdle}
	}

	appended, err := c.conversations.AddMessage(text, models.RoleUser)
	if err != nil {
		c.log.Error(fmt.Sprintf("append user turn: %v", err))
		return models.SubmitOutcome{Status: models.SubmitFailed, Phase: models.PhaseFailed, Notice: ApologyNotice}
	}
	originID := appended.Session.ID
	ctx = events.WithSession(ctx, originID)
	c.emitSessions(ctx)

	c.emit(ctx, events.ChatPending, events.Pending(originID))
	c.emit(ctx, events.ChatState, events.State(int(c.inFlight.Add(1))))

	reply, sendErr := c.send(ctx, text, originID)

	outcome := models.SubmitOutcome{SessionID: originID, UserTurn: appended.Turn}
	if sendErr == nil {
		outcome.Status = models.SubmitFulfilled
		outcome.Phase = models.PhaseFulfilled
		outcome.Reply, outcome.SessionID = c.appendReply(originID, reply.Response)
	}

	c.emit(ctx, events.ChatSettled, events.Pending(originID))
	c.emit(ctx, events.ChatState, events.State(int(c.inFlight.Add(-1))))

	switch {
	case sendErr == nil:
		if outcome.Reply != nil {
			c.emit(ctx, events.ChatReply, events.Reply(outcome.SessionID, *outcome.Reply))
			c.emitSessions(ctx)
		}
	case gateway.IsCredentialMissing(sendErr):
		c.log.Warning(fmt.Sprintf("send message rejected: %v", sendErr))
		outcome.Status = models.SubmitCredentialRequired
		outcome.Phase = models.PhaseAwaitingCredential
		outcome.Notice = CredentialPromptNotice
		c.emit(ctx, events.ChatCredentialRequired, events.CredentialRequired(CredentialPromptNotice))
	default:
		c.log.Error(fmt.Sprintf("send message: %v", sendErr))
		outcome.Status = models.SubmitFailed
		outcome.Phase = models.PhaseFailed
		outcome.Notice = ApologyNotice
		c.emit(ctx, events.ChatFailed, events.Failed(originID, ApologyNotice))
	}
	return outcome
}

func (c *ChatController) send(ctx context.Context, text, sessionID string) (*models.MessageResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.gateway.SendMessage(reqCtx, text, sessionID, c.prefs.Model())
}

// appendReply stores the assistant turn according to the reply target and
// returns it with the id of the session it landed in.
func (c *ChatController) appendReply(originID, content string) (*models.Turn, string) {
	var (
		res *models.AppendResult
		err error
	)
	if c.replyTarget == ReplyToOrigin {
		res, err = c.conversations.AddMessageTo(originID, content, models.RoleAssistant)
	} else {
		res, err = c.conversations.AddMessage(content, models.RoleAssistant)
	}
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.log.Warning(fmt.Sprintf("dropping reply for deleted session %s", originID))
		} else {
			c.log.Error(fmt.Sprintf("append assistant turn: %v", err))
		}
		return nil, originID
	}
	return res.Turn, res.Session.ID
}

// Submitting reports whether any message is awaiting its reply.
func (c *ChatController) Submitting() bool {
	return c.inFlight.Load() > 0
}

// NewSession starts an empty session and clears the server history.
func (c *ChatController) NewSession() *models.Session {
	sess := c.conversations.CreateSession()
	ctx := events.WithSession(c.baseContext(), sess.ID)
	c.emitSessions(ctx)
	c.background("clear history", func(ctx context.Context) error {
		_, err := c.gateway.ClearHistory(ctx)
		return err
	})
	return sess
}

// LoadSession makes id current and replays its turns to the server. It
// returns nil when id is unknown.
func (c *ChatController) LoadSession(id string) *models.Session {
	sess := c.conversations.SetCurrentSession(id)
	if sess == nil {
		return nil
	}
	ctx := events.WithSession(c.baseContext(), sess.ID)
	c.emitSessions(ctx)
	turns := sess.Messages
	c.background("sync history", func(ctx context.Context) error {
		_, err := c.gateway.SyncHistory(ctx, sess.ID, turns)
		return err
	})
	return sess
}

// ClearSession empties the current session.
func (c *ChatController) ClearSession() bool {
	if !c.conversations.ClearCurrentSession() {
		return false
	}
	c.emitSessions(c.baseContext())
	c.background("clear history", func(ctx context.Context) error {
		_, err := c.gateway.ClearHistory(ctx)
		return err
	})
	return true
}

// DeleteSession removes a session and returns the session that is current
// afterwards. A fresh session is created when none remain.
func (c *ChatController) DeleteSession(id string) *models.Session {
	if next := c.conversations.DeleteSession(id); next != "" {
		return c.LoadSession(next)
	}
	created := c.conversations.CreateSession()
	return c.LoadSession(created.ID)
}

func (c *ChatController) ListSessions() []models.SessionSummary {
	return c.conversations.Summaries()
}

func (c *ChatController) CurrentSession() *models.Session {
	return c.conversations.CurrentSession()
}

func (c *ChatController) emitSessions(ctx context.Context) {
	c.emit(ctx, events.ChatsChanged, events.SessionsChanged(c.conversations.Summaries()))
}

// background runs a best-effort server call. Failures are only logged.
func (c *ChatController) background(op string, call func(ctx context.Context) error) {
	c.bgMu.Lock()
	if c.closed {
		c.bgMu.Unlock()
		c.log.Warning(fmt.Sprintf("%s: skipped after shutdown", op))
		return
	}
	c.bg.Add(1)
	c.bgMu.Unlock()
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.baseContext()), c.timeout)
		defer cancel()
		if err := call(ctx); err != nil {
			c.log.Warning(fmt.Sprintf("%s: %v", op, err))
		}
	}()
}
