package telegram

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/event"
	"github.com/victornm/quizbot/internal/session"
	"github.com/victornm/quizbot/internal/telemetry"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type TurnHandler interface {
	HandleTurn(ctx context.Context, t session.Turn) (session.Reply, error)
}

type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

type WebhookConfig struct {
	Turns TurnHandler
	Bus   Publisher
	// SecretToken, when set, must match the header Telegram sends with every update.
	SecretToken string
}

// Webhook receives Telegram updates and hands the replies to the event bus.
type Webhook struct {
	turns  TurnHandler
	bus    Publisher
	secret string
}

func NewWebhook(c WebhookConfig) *Webhook {
	return &Webhook{
		turns:  c.Turns,
		bus:    c.Bus,
		secret: c.SecretToken,
	}
}

func (w *Webhook) Register(r gin.IRouter) {
	r.POST("/telegram/webhook", w.handle)
}

// handle answers 200 for anything that came from Telegram, otherwise the update is redelivered.
func (w *Webhook) handle(c *gin.Context) {
	ctx := c.Request.Context()

	if w.secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(secretTokenHeader)), []byte(w.secret)) != 1 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var u Update
	if err := c.ShouldBindJSON(&u); err != nil {
		slog.WarnContext(ctx, "telegram: malformed update", "error", err)
		c.Status(http.StatusOK)
		return
	}

	if u.Message == nil || u.Message.Text == "" {
		c.Status(http.StatusOK)
		return
	}

	w.handleMessage(ctx, u.Message)
	c.Status(http.StatusOK)
}

func (w *Webhook) handleMessage(ctx context.Context, m *Message) {
	start := time.Now()

	r, err := w.turns.HandleTurn(ctx, session.Turn{
		ExternalID:  m.ChatID(),
		DisplayName: m.DisplayName(),
		Handle:      m.Handle(),
		Text:        m.Text,
	})
	if err != nil {
		slog.ErrorContext(ctx, "telegram: handle turn failed",
			"chat_id", m.ChatID(),
			"error", err,
		)
		r = session.ErrorReply()
	}

	telemetry.ObserveTurn(r.Outcome.String(), time.Since(start))

	w.bus.Publish(ctx, domain.EventReplyReady{
		ChatID:   m.ChatID(),
		Segments: r.Segments,
	})
}
