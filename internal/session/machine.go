package session

import (
	"fmt"
	"html"
	"time"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/scoring"
)

// The functions below are the transitions of the session state machine. They never do IO:
// the service resolves questions and random picks first, then passes them in. Each returns the
// user to persist and the reply; the input user is not modified.

func greet(u domain.User, t Turn, isNew bool) (domain.User, Reply) {
	if t.DisplayName != "" {
		u.DisplayName = t.DisplayName
	}
	if t.Handle != "" {
		u.Handle = t.Handle
	}

	name := html.EscapeString(u.DisplayName)
	if name == "" {
		name = "teman"
	}

	if isNew {
		return u, reply(OutcomeWelcome, fmt.Sprintf(msgWelcome, name))
	}

	return u, reply(OutcomeWelcome, fmt.Sprintf(msgWelcomeBack, name))
}

func showStatus(u domain.User, now time.Time) Reply {
	return reply(OutcomeStatus, renderStatus(u, u.DailyDoneOn(now)))
}

// startSingle replaces any pending single question with q.
func startSingle(u domain.User, q domain.Question) (domain.User, Reply) {
	u.Session = domain.SingleSession(q.ID)
	return u, reply(OutcomeQuestion, renderQuestion(q, 0))
}

// startDaily begins a daily run over ids, first being the question ids[0]. A pending single
// question is dropped.
func startDaily(u domain.User, ids []domain.QuestionID, first domain.Question) (domain.User, Reply, error) {
	s, err := domain.NewDailySession(ids)
	if err != nil {
		return u, Reply{}, err
	}

	var prefix Reply
	if u.Session.Mode() == domain.ModeSingle {
		prefix = reply(0, msgDailyReplacesSolo)
	}

	u.Session = s
	return u, prefix.then(reply(OutcomeDailyStarted, renderQuestion(first, 1))), nil
}

func dailyInProgress(u domain.User) Reply {
	return reply(OutcomeDailyInProgress, fmt.Sprintf(msgDailyInProgress, u.Session.DailyIndex()+1, domain.DailyLength))
}

// expireSingle ends a single session whose question no longer exists.
func expireSingle(u domain.User) (domain.User, Reply) {
	u.Session = domain.IdleSession()
	return u, reply(OutcomeSessionExpired, msgSessionExpired)
}

// abortDaily ends a daily run whose question no longer exists. The day is not marked as done.
func abortDaily(u domain.User) (domain.User, Reply) {
	u.Session = domain.IdleSession()
	return u, reply(OutcomeSessionAborted, msgSessionAborted)
}

func answerSingle(u domain.User, q domain.Question, text string) (domain.User, Reply) {
	correct, valid := scoring.IsCorrectAnswer(q, text)
	if !valid {
		return u, reply(OutcomeInvalidAnswerFormat, msgInvalidAnswer)
	}

	next := scoring.ApplyAnswer(u, correct)
	next.Session = domain.IdleSession()

	return next, reply(answerOutcome(correct), renderFeedback(q, correct, u, next))
}

// answerDaily counts an answer to the current daily question q. When the run continues the
// caller appends the next question to the reply.
func answerDaily(u domain.User, q domain.Question, text string, now time.Time) (domain.User, Reply) {
	correct, valid := scoring.IsCorrectAnswer(q, text)
	if !valid {
		return u, reply(OutcomeInvalidAnswerFormat, msgInvalidAnswer)
	}

	next := scoring.ApplyAnswer(u, correct)

	var res domain.DailyResult
	next.Session, res = u.Session.Advance(correct)

	feedback := renderFeedback(q, correct, u, next)
	if !res.Done {
		return next, reply(answerOutcome(correct), feedback)
	}

	next.LastDailyDate = domain.Day(now)
	return next, reply(OutcomeDailyCompleted, feedback, renderDailySummary(res, next))
}

func answerOutcome(correct bool) Outcome {
	if correct {
		return OutcomeCorrect
	}

	return OutcomeIncorrect
}
