package domain

import (
	"fmt"
	"slices"
)

// DailyLength is the number of questions in one daily challenge.
const DailyLength = 5

type SessionMode int

const (
	ModeIdle SessionMode = iota
	ModeSingle
	ModeDaily
)

func (m SessionMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeSingle:
		return "single"
	case ModeDaily:
		return "daily"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Session is the active session of a user. The zero value is idle.
// Fields are unexported so a session is either idle, a single question or a daily run, never a mix.
type Session struct {
	mode     SessionMode
	question QuestionID
	daily    []QuestionID
	index    int
	correct  int
}

func IdleSession() Session {
	return Session{}
}

func SingleSession(id QuestionID) Session {
	return Session{mode: ModeSingle, question: id}
}

// NewDailySession starts a daily run over ids, which must hold DailyLength distinct questions.
func NewDailySession(ids []QuestionID) (Session, error) {
	return dailySession(ids, 0, 0)
}

func dailySession(ids []QuestionID, index, correct int) (Session, error) {
	if len(ids) != DailyLength {
		return Session{}, fmt.Errorf("daily session: want %d questions, got %d", DailyLength, len(ids))
	}

	seen := make(map[QuestionID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return Session{}, fmt.Errorf("daily session: duplicate question %d", id)
		}
		seen[id] = struct{}{}
	}

	if index < 0 || index >= DailyLength {
		return Session{}, fmt.Errorf("daily session: index %d out of range", index)
	}

	if correct < 0 || correct > index {
		return Session{}, fmt.Errorf("daily session: %d correct answers after %d questions", correct, index)
	}

	return Session{
		mode:    ModeDaily,
		daily:   slices.Clone(ids),
		index:   index,
		correct: correct,
	}, nil
}

// SessionFromRecord rebuilds a session from its stored columns and rejects combinations that
// cannot be produced by the state machine.
func SessionFromRecord(active *QuestionID, daily []QuestionID, index *int, correct int) (Session, error) {
	switch {
	case active != nil && (daily != nil || index != nil):
		return Session{}, fmt.Errorf("session record: both single and daily fields are set")
	case active != nil:
		return SingleSession(*active), nil
	case daily == nil && index == nil:
		return IdleSession(), nil
	case daily == nil || index == nil:
		return Session{}, fmt.Errorf("session record: partial daily fields")
	default:
		return dailySession(daily, *index, correct)
	}
}

func (s Session) Mode() SessionMode {
	return s.mode
}

// ActiveQuestion is the pending single question.
func (s Session) ActiveQuestion() (QuestionID, bool) {
	return s.question, s.mode == ModeSingle
}

// DailyQuestions returns a copy of the daily order, nil outside a daily run.
func (s Session) DailyQuestions() []QuestionID {
	return slices.Clone(s.daily)
}

// DailyIndex is the position of the current daily question, -1 outside a daily run.
func (s Session) DailyIndex() int {
	if s.mode != ModeDaily {
		return -1
	}

	return s.index
}

// DailyCorrect is the number of correct answers so far in the daily run.
func (s Session) DailyCorrect() int {
	return s.correct
}

// CurrentQuestion is the question the user is expected to answer next.
func (s Session) CurrentQuestion() (QuestionID, bool) {
	switch s.mode {
	case ModeSingle:
		return s.question, true
	case ModeDaily:
		return s.daily[s.index], true
	default:
		return 0, false
	}
}

// DailyResult describes a daily run right after an answer was counted.
type DailyResult struct {
	Answered int
	Correct  int
	Done     bool
}

// Advance counts an answer to the current daily question. When the last question is answered the
// returned session is idle and the result is Done.
func (s Session) Advance(correct bool) (Session, DailyResult) {
	if s.mode != ModeDaily {
		return s, DailyResult{}
	}

	next := s
	next.daily = slices.Clone(s.daily)
	next.index++
	if correct {
		next.correct++
	}

	res := DailyResult{Answered: next.index, Correct: next.correct}
	if next.index >= DailyLength {
		res.Done = true
		return IdleSession(), res
	}

	return next, res
}

func (s Session) Equal(o Session) bool {
	return s.mode == o.mode &&
		s.question == o.question &&
		slices.Equal(s.daily, o.daily) &&
		s.index == o.index &&
		s.correct == o.correct
}
