package telegram_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/event"
	"github.com/victornm/quizbot/internal/progress"
	"github.com/victornm/quizbot/internal/question"
	"github.com/victornm/quizbot/internal/selector"
	"github.com/victornm/quizbot/internal/session"
	"github.com/victornm/quizbot/internal/telegram"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWebhook(t *testing.T) {
	tests := map[string]struct {
		body   string
		header string
		turns  *fakeTurns

		wantStatus    int
		wantPublished []domain.EventReplyReady
		wantTurns     []session.Turn
	}{
		"text message should be handled and its reply published": {
			body:       `{"update_id":1,"message":{"message_id":7,"chat":{"id":42},"from":{"id":42,"first_name":"Ana","last_name":"Maria","username":"ana"},"text":"/help"}}`,
			turns:      &fakeTurns{reply: session.Reply{Outcome: session.OutcomeHelp, Segments: []string{"help"}}},
			wantStatus: http.StatusOK,
			wantTurns:  []session.Turn{{ExternalID: "42", DisplayName: "Ana Maria", Handle: "ana", Text: "/help"}},
			wantPublished: []domain.EventReplyReady{
				{ChatID: "42", Segments: []string{"help"}},
			},
		},
		"failed turn should publish the apology": {
			body:       `{"update_id":1,"message":{"chat":{"id":42},"text":"a"}}`,
			turns:      &fakeTurns{err: stderrors.New("db down")},
			wantStatus: http.StatusOK,
			wantTurns:  []session.Turn{{ExternalID: "42", Text: "a"}},
			wantPublished: []domain.EventReplyReady{
				{ChatID: "42", Segments: session.ErrorReply().Segments},
			},
		},
		"update without message should be ignored": {
			body:       `{"update_id":1,"edited_message":{"chat":{"id":42},"text":"a"}}`,
			turns:      &fakeTurns{},
			wantStatus: http.StatusOK,
		},
		"message without text should be ignored": {
			body:       `{"update_id":1,"message":{"chat":{"id":42},"sticker":{}}}`,
			turns:      &fakeTurns{},
			wantStatus: http.StatusOK,
		},
		"malformed body should still be acknowledged": {
			body:       `{"update_id":`,
			turns:      &fakeTurns{},
			wantStatus: http.StatusOK,
		},
		"wrong secret should be rejected": {
			body:       `{"update_id":1,"message":{"chat":{"id":42},"text":"a"}}`,
			header:     "nope",
			turns:      &fakeTurns{},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			header := tt.header
			if header == "" {
				header = "s3cret"
			}

			pub := &recordingPublisher{}
			e := gin.New()
			telegram.NewWebhook(telegram.WebhookConfig{
				Turns:       tt.turns,
				Bus:         pub,
				SecretToken: "s3cret",
			}).Register(e)

			req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Telegram-Bot-Api-Secret-Token", header)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantTurns, tt.turns.received)
			assert.Equal(t, tt.wantPublished, pub.events)
		})
	}
}

func TestClient_SendMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		if got["chat_id"] == "0" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}

		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := telegram.NewClient(telegram.ClientConfig{Token: "TOKEN", APIURL: srv.URL + "/"})

	err := c.SendMessage(context.Background(), "42", "<b>Benar!</b>")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chat_id": "42", "text": "<b>Benar!</b>", "parse_mode": "HTML"}, got)

	err = c.SendMessage(context.Background(), "0", "hi")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUnavailable))
	assert.Contains(t, err.Error(), "chat not found")
}

func TestClient_SendMessageUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := telegram.NewClient(telegram.ClientConfig{Token: "TOKEN", APIURL: srv.URL})
	err := c.SendMessage(context.Background(), "42", "hi")
	assert.True(t, errors.HasCode(err, errors.CodeUnavailable))
}

func TestNotifier_Deliver(t *testing.T) {
	tests := map[string]struct {
		failOn   string
		segments []string

		wantSent []string
		wantErr  bool
	}{
		"segments should be sent in order": {
			segments: []string{"feedback", "question 2/5"},
			wantSent: []string{"feedback", "question 2/5"},
		},
		"delivery should stop at the first failure": {
			failOn:   "b",
			segments: []string{"a", "b", "c"},
			wantSent: []string{"a"},
			wantErr:  true,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := &fakeSender{failOn: tt.failOn}
			n := telegram.NewNotifier(telegram.NotifierConfig{EventBus: event.NewBus(), Sender: s})

			err := n.Deliver(context.Background(), domain.EventReplyReady{ChatID: "42", Segments: tt.segments})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSent, s.texts())
		})
	}
}

// TestWebhook_EndToEnd runs an update through the session service and the bus to the Bot API.
func TestWebhook_EndToEnd(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		sent = append(sent, body["text"])
		mu.Unlock()

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer api.Close()

	bus := event.NewBus(event.WithTimeout(time.Second))
	telegram.NewNotifier(telegram.NotifierConfig{
		EventBus: bus,
		Sender:   telegram.NewClient(telegram.ClientConfig{Token: "T", APIURL: api.URL}),
	})

	svc := session.NewService(session.Config{
		Bank: question.NewMemory(domain.Question{
			Type:        "vocab",
			Theme:       "dasar",
			Prompt:      "What is the English word for 'kucing'?",
			Options:     []string{"Dog", "Cat", "Bird", "Fish"},
			AnswerIndex: 1,
		}),
		Store:    progress.NewMemory(),
		Selector: selector.New(rand.NewPCG(1, 2)),
	})

	e := gin.New()
	telegram.NewWebhook(telegram.WebhookConfig{Turns: svc, Bus: bus}).Register(e)

	for _, text := range []string{"/latihan", "b"} {
		body := `{"update_id":1,"message":{"chat":{"id":7},"from":{"first_name":"Budi"},"text":"` + text + `"}}`
		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)

		// Deliveries are async, wait so the two replies arrive in order.
		bus.Stop()
	}

	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "kucing")
	assert.Contains(t, sent[1], "Benar!")
}

type fakeTurns struct {
	reply    session.Reply
	err      error
	received []session.Turn
}

func (f *fakeTurns) HandleTurn(_ context.Context, t session.Turn) (session.Reply, error) {
	f.received = append(f.received, t)
	return f.reply, f.err
}

type recordingPublisher struct {
	events []domain.EventReplyReady
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) {
	p.events = append(p.events, e.(domain.EventReplyReady))
}

type fakeSender struct {
	mu     sync.Mutex
	failOn string
	sent   []string
}

func (s *fakeSender) SendMessage(_ context.Context, _, text string) error {
	if text == s.failOn {
		return errors.New(errors.CodeUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sent
}
