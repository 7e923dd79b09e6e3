package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/selector"
)

const defaultLockWait = 5 * time.Second

// QuestionBank is the read-only question source.
type QuestionBank interface {
	Get(ctx context.Context, id domain.QuestionID) (domain.Question, error)
	ListIDs(ctx context.Context, theme string) ([]domain.QuestionID, error)
	Themes(ctx context.Context) ([]string, error)
}

// ProgressStore loads and saves users. Upsert must reject a user whose Version is stale.
type ProgressStore interface {
	Load(ctx context.Context, externalID string) (domain.User, error)
	Upsert(ctx context.Context, u domain.User) (domain.User, error)
}

// Locker serializes turns of the same user.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type Config struct {
	Bank     QuestionBank
	Store    ProgressStore
	Selector *selector.Selector
	// Locker is optional, without it the store's version check is the only guard.
	Locker   Locker
	LockWait time.Duration
	Now      func() time.Time
}

// Service runs the session state machine, one turn per inbound message.
type Service struct {
	bank     QuestionBank
	store    ProgressStore
	sel      *selector.Selector
	locker   Locker
	lockWait time.Duration
	now      func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		bank:     c.Bank,
		store:    c.Store,
		sel:      c.Selector,
		locker:   c.Locker,
		lockWait: c.LockWait,
		now:      c.Now,
	}

	if s.sel == nil {
		s.sel = selector.New(nil)
	}
	if s.lockWait <= 0 {
		s.lockWait = defaultLockWait
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Turn is one inbound message.
type Turn struct {
	ExternalID  string
	DisplayName string
	Handle      string
	Text        string
}

// HandleTurn applies one message to the user's session and returns the reply. An error means
// nothing was persisted; the caller should answer with ErrorReply.
func (s *Service) HandleTurn(ctx context.Context, t Turn) (Reply, error) {
	if t.ExternalID == "" {
		return Reply{}, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("missing external ID"))
	}

	if s.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
		unlock, err := s.locker.Lock(lockCtx, "user:"+t.ExternalID)
		cancel()
		if err != nil {
			return Reply{}, fmt.Errorf("session: lock user %s: %w", t.ExternalID, err)
		}
		defer unlock()
	}

	now := s.now()

	u, isNew, err := s.loadUser(ctx, t, now)
	if err != nil {
		return Reply{}, err
	}

	cmd := ParseCommand(t.Text)
	next, r, err := s.dispatch(ctx, u, t, cmd, isNew, now)
	if err != nil {
		return Reply{}, fmt.Errorf("session: %s: %w", u.Session.Mode(), err)
	}

	if isNew || !next.Equal(u) {
		next.UpdatedAt = now
		if _, err := s.store.Upsert(ctx, next); err != nil {
			return Reply{}, fmt.Errorf("session: save user %s: %w", t.ExternalID, err)
		}
	}

	slog.InfoContext(ctx, "session: turn handled",
		"external_id", t.ExternalID,
		"command", cmd.Name,
		"outcome", r.Outcome.String(),
		"mode", next.Session.Mode().String(),
	)

	return r, nil
}

func (s *Service) loadUser(ctx context.Context, t Turn, now time.Time) (domain.User, bool, error) {
	u, err := s.store.Load(ctx, t.ExternalID)
	if err == nil {
		return u, false, nil
	}

	if !errors.HasCode(err, errors.CodeNotFound) {
		return domain.User{}, false, fmt.Errorf("session: load user %s: %w", t.ExternalID, err)
	}

	u, err = domain.NewUser(t.ExternalID, t.DisplayName, t.Handle, now)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("session: %w", err)
	}

	return u, true, nil
}

func (s *Service) dispatch(ctx context.Context, u domain.User, t Turn, cmd Command, isNew bool, now time.Time) (domain.User, Reply, error) {
	switch cmd.Kind {
	case CmdStart:
		next, r := greet(u, t, isNew)
		return next, r, nil

	case CmdHelp:
		return u, reply(OutcomeHelp, msgHelp), nil

	case CmdStatus:
		return u, showStatus(u, now), nil

	case CmdPractice:
		return s.startSingle(ctx, u, "")

	case CmdTheme:
		if cmd.Arg == "" {
			return s.themeRequired(ctx, u)
		}
		return s.startSingle(ctx, u, cmd.Arg)

	case CmdDaily:
		return s.startDaily(ctx, u, now)

	case CmdUnknown:
		return u, reply(OutcomeUnknownCommand, renderUnknownCommand(cmd.Name)), nil

	default:
		return s.answer(ctx, u, cmd.Arg, now)
	}
}

func (s *Service) startSingle(ctx context.Context, u domain.User, theme string) (domain.User, Reply, error) {
	if u.Session.Mode() == domain.ModeDaily {
		return u, dailyInProgress(u), nil
	}

	ids, err := s.bank.ListIDs(ctx, theme)
	if err != nil {
		return u, Reply{}, fmt.Errorf("list questions: %w", err)
	}

	id, err := selector.PickOne(s.sel, ids)
	if stderrors.Is(err, selector.ErrEmptyPool) {
		return s.noQuestions(ctx, u, theme)
	}
	if err != nil {
		return u, Reply{}, err
	}

	q, err := s.bank.Get(ctx, id)
	if errors.HasCode(err, errors.CodeNotFound) {
		return s.noQuestions(ctx, u, theme)
	}
	if err != nil {
		return u, Reply{}, fmt.Errorf("get question: %w", err)
	}

	next, r := startSingle(u, q)
	return next, r, nil
}

func (s *Service) noQuestions(ctx context.Context, u domain.User, theme string) (domain.User, Reply, error) {
	if theme == "" {
		return u, reply(OutcomeNoQuestionsAvailable, msgNoQuestions), nil
	}

	themes, err := s.bank.Themes(ctx)
	if err != nil {
		return u, Reply{}, fmt.Errorf("list themes: %w", err)
	}

	if len(themes) == 0 {
		return u, reply(OutcomeNoQuestionsAvailable, msgNoQuestions), nil
	}

	return u, reply(OutcomeNoQuestionsAvailable, renderNoQuestionsForTheme(theme, themes)), nil
}

func (s *Service) themeRequired(ctx context.Context, u domain.User) (domain.User, Reply, error) {
	themes, err := s.bank.Themes(ctx)
	if err != nil {
		return u, Reply{}, fmt.Errorf("list themes: %w", err)
	}

	r := reply(OutcomeThemeRequired, msgThemeRequired)
	if t := renderThemes(themes); t != "" {
		r.Segments = append(r.Segments, t)
	}

	return u, r, nil
}

func (s *Service) startDaily(ctx context.Context, u domain.User, now time.Time) (domain.User, Reply, error) {
	if u.Session.Mode() == domain.ModeDaily {
		return u, dailyInProgress(u), nil
	}

	if u.DailyDoneOn(now) {
		return u, reply(OutcomeAlreadyDoneToday, msgAlreadyDoneToday), nil
	}

	ids, err := s.bank.ListIDs(ctx, "")
	if err != nil {
		return u, Reply{}, fmt.Errorf("list questions: %w", err)
	}

	picked, err := selector.PickK(s.sel, ids, domain.DailyLength)
	if stderrors.Is(err, selector.ErrInsufficientPool) {
		return u, reply(OutcomeInsufficientPool, fmt.Sprintf(msgInsufficientPool, domain.DailyLength)), nil
	}
	if err != nil {
		return u, Reply{}, err
	}

	first, err := s.bank.Get(ctx, picked[0])
	if errors.HasCode(err, errors.CodeNotFound) {
		return u, reply(OutcomeNoQuestionsAvailable, msgNoQuestions), nil
	}
	if err != nil {
		return u, Reply{}, fmt.Errorf("get question: %w", err)
	}

	return startDaily(u, picked, first)
}

func (s *Service) answer(ctx context.Context, u domain.User, text string, now time.Time) (domain.User, Reply, error) {
	id, ok := u.Session.CurrentQuestion()
	if !ok {
		return u, reply(OutcomeNoActiveSession, msgNoActiveSession), nil
	}

	q, err := s.bank.Get(ctx, id)
	missing := errors.HasCode(err, errors.CodeNotFound)
	if err != nil && !missing {
		return u, Reply{}, fmt.Errorf("get question: %w", err)
	}

	if u.Session.Mode() == domain.ModeSingle {
		if missing {
			next, r := expireSingle(u)
			return next, r, nil
		}

		next, r := answerSingle(u, q, text)
		return next, r, nil
	}

	if missing {
		next, r := abortDaily(u)
		return next, r, nil
	}

	next, r := answerDaily(u, q, text, now)
	if next.Session.Mode() != domain.ModeDaily || next.Session.Equal(u.Session) {
		return next, r, nil
	}

	return s.appendNextDaily(ctx, next, r)
}

// appendNextDaily adds the next daily question to r. If it vanished the answer still counts but
// the run is aborted.
func (s *Service) appendNextDaily(ctx context.Context, u domain.User, r Reply) (domain.User, Reply, error) {
	id, _ := u.Session.CurrentQuestion()

	q, err := s.bank.Get(ctx, id)
	if errors.HasCode(err, errors.CodeNotFound) {
		next, aborted := abortDaily(u)
		return next, r.then(aborted), nil
	}
	if err != nil {
		return u, Reply{}, fmt.Errorf("get question: %w", err)
	}

	r.Segments = append(r.Segments, renderQuestion(q, u.Session.DailyIndex()+1))
	return u, r, nil
}
